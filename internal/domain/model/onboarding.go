package model

import "time"

type OnboardingStep string

const (
	StepAwaitingPhone    OnboardingStep = "awaiting_phone"
	StepAwaitingCode     OnboardingStep = "awaiting_code"
	StepAwaitingPassword OnboardingStep = "awaiting_password"
	StepCompleted        OnboardingStep = "completed"
	StepAborted          OnboardingStep = "aborted"
)

// Terminal reports whether the flow ends at this step.
func (s OnboardingStep) Terminal() bool {
	return s == StepCompleted || s == StepAborted
}

// OnboardingContext is the transient state carried between the steps of adding an account.
// Session holds the provisional session string issued by the last connection.
type OnboardingContext struct {
	OwnerID   int64
	Step      OnboardingStep
	Phone     string
	CodeToken string
	Session   string
	StartedAt time.Time
}

func NewOnboardingContext(ownerID int64) *OnboardingContext {
	return &OnboardingContext{
		OwnerID:   ownerID,
		Step:      StepAwaitingPhone,
		StartedAt: time.Now(),
	}
}

// StepResult is what a single onboarding step reports back to the conversation.
type StepResult struct {
	Step    OnboardingStep
	Outcome AuthOutcome
	Phone   string
	// Err carries the underlying failure when Outcome is OutcomeUnknown.
	Err error
}
