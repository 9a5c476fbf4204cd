package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("essentiactl", "GET", "/health", 200, 12*time.Millisecond)
	RecordCommand("CONSR", "ok", 140*time.Millisecond)
	RecordUnsolicitedLine()
	RecordReadError()
	SetQueueDepth(3)

	if got := testutil.ToFloat64(queueDepth); got != 3 {
		t.Fatalf("queue depth=%v want 3", got)
	}
	before := testutil.ToFloat64(queueCommands.WithLabelValues("ON", "stalled"))
	RecordCommand("ON", "stalled", time.Second)
	if got := testutil.ToFloat64(queueCommands.WithLabelValues("ON", "stalled")); got != before+1 {
		t.Fatalf("stalled count=%v want %v", got, before+1)
	}
}
