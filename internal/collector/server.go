package collector

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/danmuck/framewire/internal/auth"
	"github.com/danmuck/framewire/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Server is the collector's HTTP status surface.
type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	intake *Intake
	sink   *MemorySink
	guard  auth.Validator
	router *gin.Engine
	ready  atomic.Bool
}

// NewServer builds the status router. A nil guard leaves /stats open.
func NewServer(id, addr string, corsOrigins []string, intake *Intake, sink *MemorySink, guard auth.Validator) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		intake:   intake,
		sink:     sink,
		guard:    guard,
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// MarkReady flips /ready once the intake socket is bound.
func (s *Server) MarkReady(ready bool) { s.ready.Store(ready) }

type recordView struct {
	Message  string    `json:"message"`
	From     string    `json:"from"`
	Received time.Time `json:"received"`
	Frames   int       `json:"frames"`
	Summary  string    `json:"summary"`
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		if !s.ready.Load() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   s.ready.Load(),
			"service": s.ID,
			"version": version,
		})
	})

	stats := []gin.HandlerFunc{}
	if s.guard != nil {
		stats = append(stats, auth.RequireToken(s.guard))
	}
	stats = append(stats, func(c *gin.Context) {
		body := gin.H{"intake": s.intake.Stats()}
		if s.sink != nil {
			total, byMessage := s.sink.Counts()
			recent := s.sink.Records()
			views := make([]recordView, 0, len(recent))
			for _, r := range recent {
				views = append(views, recordView{
					Message:  r.Message(),
					From:     r.From,
					Received: r.Received,
					Frames:   r.Frameset.Len(),
					Summary:  r.Frameset.String(),
				})
			}
			body["stored"] = total
			body["by_message"] = byMessage
			body["recent"] = views
		}
		c.JSON(http.StatusOK, body)
	})
	s.router.GET("/stats", stats...)

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
