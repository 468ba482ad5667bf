package collector

import (
	"sync"
	"time"

	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/danmuck/framewire/internal/protocol/schema"
)

// Record is one accepted frameset and where it came from.
type Record struct {
	MessageType uint16
	From        string
	Received    time.Time
	Frameset    *frameset.Frameset
}

func (r Record) Message() string { return schema.Name(r.MessageType) }

// Sink persists accepted records. Implementations must be safe for
// concurrent use.
type Sink interface {
	Accept(Record) error
}

type SinkFunc func(Record) error

func (f SinkFunc) Accept(r Record) error { return f(r) }

// MemorySink keeps the most recent records in a ring.
type MemorySink struct {
	mu      sync.Mutex
	keep    int
	records []Record
	next    int
	total   int64
	byType  map[uint16]int64
}

func NewMemorySink(keep int) *MemorySink {
	if keep <= 0 {
		keep = 256
	}
	return &MemorySink{keep: keep, byType: make(map[uint16]int64)}
}

func (s *MemorySink) Accept(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) < s.keep {
		s.records = append(s.records, r)
	} else {
		s.records[s.next] = r
		s.next = (s.next + 1) % s.keep
	}
	s.total++
	s.byType[r.MessageType]++
	return nil
}

// Records returns the retained records, oldest first.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	out = append(out, s.records[s.next:]...)
	out = append(out, s.records[:s.next]...)
	return out
}

// Counts reports accepted totals keyed by message name.
func (s *MemorySink) Counts() (int64, map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byName := make(map[string]int64, len(s.byType))
	for mt, n := range s.byType {
		byName[schema.Name(mt)] += n
	}
	return s.total, byName
}
