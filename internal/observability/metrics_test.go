package observability

import (
	"testing"
	"time"

	"github.com/danmuck/framewire/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)

	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("collector-a", "GET", "/health", 200, 12*time.Millisecond)
	RecordEncoded("probe-a", "facts", 212)

	before := testutil.ToFloat64(framesetsRejected.WithLabelValues("collector-a", "truncated"))
	RecordRejected("collector-a", "truncated")
	RecordRejected("collector-a", "truncated")
	if got := testutil.ToFloat64(framesetsRejected.WithLabelValues("collector-a", "truncated")); got != before+2 {
		t.Fatalf("rejected counter=%v want %v", got, before+2)
	}

	RecordAccepted("collector-a", "heartbeat")
	if got := testutil.ToFloat64(framesetsAccepted.WithLabelValues("collector-a", "heartbeat")); got < 1 {
		t.Fatalf("accepted counter not incremented")
	}
}
