package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecordersDoNotPanic(t *testing.T) {
	SetQueueDepth(3)
	ObserveJobDuration(0.5)
	RecordJobStatus("SUCCESS")
	ObserveLockWait("foo", 0.01)
	RecordLockTimeout("foo")
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	RecordJobStatus("SUCCESS")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "swarm_job_status_total") {
		t.Fatalf("expected swarm_job_status_total in /metrics output, got:\n%s", body)
	}
	if !strings.Contains(body, "swarm_queue_depth") {
		t.Fatalf("expected swarm_queue_depth in /metrics output")
	}
}
