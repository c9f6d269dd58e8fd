package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(onboardingStartedTotal, onboardingStepsTotal, accountsOnboardedTotal)
}

var (
	onboardingStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_started_total",
			Help: "Total number of add-account flows started.",
		},
	)

	onboardingStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_steps_total",
			Help: "Onboarding steps processed, by step and auth outcome.",
		},
		[]string{"step", "outcome"},
	)

	accountsOnboardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_onboarded_total",
			Help: "Total number of accounts persisted by a completed onboarding.",
		},
	)
)

func IncOnboardingStarted() {
	onboardingStartedTotal.Inc()
}

func IncOnboardingStep(step, outcome string) {
	onboardingStepsTotal.WithLabelValues(norm(step), norm(outcome)).Inc()
}

func IncAccountOnboarded() {
	accountsOnboardedTotal.Inc()
}
