package delivery

import (
	"math/rand"
	"time"

	webhookdomain "github.com/inlethq/inlet/internal/webhook/domain"
)

// State models one webhook delivery's progress. Transitions are pure so the
// retry logic is testable without network calls.
type State string

const (
	StatePending      State = "pending"
	StateAttempting   State = "attempting"
	StateSuccess      State = "success"
	StateWaitingRetry State = "waiting_retry"
	StateExhausted    State = "exhausted"
)

// Terminal reports whether the state machine has finished.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateExhausted
}

// NextState advances the delivery state machine after one attempt outcome.
func NextState(current State, success bool, attempt, maxAttempts int) State {
	switch current {
	case StatePending, StateWaitingRetry:
		return StateAttempting
	case StateAttempting:
		if success {
			return StateSuccess
		}
		if attempt >= maxAttempts {
			return StateExhausted
		}
		return StateWaitingRetry
	default:
		return current
	}
}

const (
	exponentialBaseMs = 1000
	exponentialCapMs  = 30000
	linearStepMs      = 2000
	fixedDelayMs      = 5000
	maxJitterMs       = 1000
)

// BackoffDelay returns the pre-jitter wait before retrying after the given
// attempt number (1-based). Exponential doubles from 1s and caps at 30s.
func BackoffDelay(strategy webhookdomain.BackoffStrategy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	var ms int64
	switch strategy {
	case webhookdomain.BackoffLinear:
		ms = int64(attempt) * linearStepMs
	case webhookdomain.BackoffFixed:
		ms = fixedDelayMs
	default:
		ms = exponentialBaseMs << (attempt - 1)
		if ms > exponentialCapMs || ms <= 0 {
			ms = exponentialCapMs
		}
	}
	return time.Duration(ms) * time.Millisecond
}

// Jitter returns a random smear added to every backoff wait so webhooks that
// failed together do not retry in lockstep.
func Jitter() time.Duration {
	return time.Duration(rand.Int63n(maxJitterMs)) * time.Millisecond
}
