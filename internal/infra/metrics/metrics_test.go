//go:build !integration

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(onboardingStepsTotal.WithLabelValues("awaiting_code", "invalid_code"))
	IncOnboardingStep(" Awaiting_Code ", "INVALID_CODE")
	after := testutil.ToFloat64(onboardingStepsTotal.WithLabelValues("awaiting_code", "invalid_code"))
	if after != before+1 {
		t.Errorf("expected labels to be normalized and counter to grow by 1, got %v -> %v", before, after)
	}

	IncSessionOperation("info", "ok")
	if got := testutil.ToFloat64(sessionOperationsTotal.WithLabelValues("info", "ok")); got < 1 {
		t.Errorf("expected session operation counter to be at least 1, got %v", got)
	}

	ObserveGatewayDial(120*time.Millisecond, true)
	if n := testutil.CollectAndCount(gatewayDialLatencyMs); n == 0 {
		t.Error("expected the dial histogram to have a series")
	}
}

func TestMustRegisterIsIdempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}
