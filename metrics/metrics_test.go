package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordRequest(t *testing.T) {
	tests := []struct {
		name       string
		tool       string
		duration   float64
		success    bool
		wantStatus string
	}{
		{
			name:       "successful request",
			tool:       "getWeather",
			duration:   0.5,
			success:    true,
			wantStatus: "success",
		},
		{
			name:       "failed request",
			tool:       "chat",
			duration:   1.0,
			success:    false,
			wantStatus: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter, err := RequestsTotal.GetMetricWithLabelValues(tt.tool, tt.wantStatus)
			if err != nil {
				t.Fatalf("failed to get metric: %v", err)
			}
			before := getCounterValue(t, counter)

			RecordRequest(tt.tool, tt.duration, tt.success)

			if got := getCounterValue(t, counter); got != before+1 {
				t.Errorf("counter = %v, want %v", got, before+1)
			}
		})
	}
}

func TestRecordAPICall(t *testing.T) {
	tests := []struct {
		name      string
		service   string
		action    string
		success   bool
		errorCode string
	}{
		{
			name:    "successful call",
			service: "open-meteo",
			action:  "forecast",
			success: true,
		},
		{
			name:      "failed call with error code",
			service:   "open-meteo",
			action:    "geocode",
			success:   false,
			errorCode: "503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordAPICall(tt.service, tt.action, 0.1, tt.success, tt.errorCode)

			counter, err := UpstreamRequestsTotal.GetMetricWithLabelValues(tt.service, tt.action, statusLabel(tt.success))
			if err != nil {
				t.Fatalf("failed to get metric: %v", err)
			}
			if getCounterValue(t, counter) < 1 {
				t.Error("expected request counter to be incremented")
			}

			if tt.errorCode != "" {
				errCounter, err := UpstreamErrors.GetMetricWithLabelValues(tt.service, tt.action, tt.errorCode)
				if err != nil {
					t.Fatalf("failed to get error metric: %v", err)
				}
				if getCounterValue(t, errCounter) < 1 {
					t.Error("expected error counter to be incremented")
				}
			}
		})
	}
}

func TestRecordLLMCall(t *testing.T) {
	counter, err := LLMRequestsTotal.GetMetricWithLabelValues("echo", "success")
	if err != nil {
		t.Fatalf("failed to get metric: %v", err)
	}
	before := getCounterValue(t, counter)

	RecordLLMCall("echo", 0.01, true)

	if getCounterValue(t, counter) != before+1 {
		t.Error("expected llm request counter to increment")
	}
}

func TestRecordCacheAccess(t *testing.T) {
	initialHits := getCounterValue(t, CacheHits)
	initialMisses := getCounterValue(t, CacheMisses)

	RecordCacheAccess(true)
	if getCounterValue(t, CacheHits) != initialHits+1 {
		t.Error("expected cache hits to increment")
	}

	RecordCacheAccess(false)
	if getCounterValue(t, CacheMisses) != initialMisses+1 {
		t.Error("expected cache misses to increment")
	}
}

func TestSetCacheSize(t *testing.T) {
	for _, size := range []int64{100, 50} {
		SetCacheSize(size)

		var m dto.Metric
		if err := CacheSize.Write(&m); err != nil {
			t.Fatalf("failed to write metric: %v", err)
		}
		if m.Gauge.GetValue() != float64(size) {
			t.Errorf("expected cache size %d, got %v", size, m.Gauge.GetValue())
		}
	}
}

func TestNamespace(t *testing.T) {
	if Namespace != "toolcall_mcp" {
		t.Errorf("expected namespace 'toolcall_mcp', got '%s'", Namespace)
	}
}

func getCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.Counter.GetValue()
}
