package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRegistered(t *testing.T) {
	before := testutil.ToFloat64(PredictionsTotal.WithLabelValues("http", "true"))
	PredictionsTotal.WithLabelValues("http", "true").Inc()
	after := testutil.ToFloat64(PredictionsTotal.WithLabelValues("http", "true"))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}

func TestHandler(t *testing.T) {
	PredictionsTotal.WithLabelValues("batch", "false").Inc()
	QueueSize.Set(3)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, metric := range []string{"churnkit_scoring_predictions_total", "churnkit_queue_size"} {
		if !strings.Contains(string(body), metric) {
			t.Errorf("exposition missing %s", metric)
		}
	}
}
