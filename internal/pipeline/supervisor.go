package pipeline

import (
	"go.uber.org/zap"
)

// supervisorState tracks where a turn's correction loop is. The supervisor
// is created per turn; counts never leak across turns.
type supervisorState string

const (
	stateIdle       supervisorState = "idle"
	stateAttempting supervisorState = "attempting"
	stateRetrying   supervisorState = "retrying"
	stateSucceeded  supervisorState = "succeeded"
	stateGivenUp    supervisorState = "given-up"
)

// supervisor bounds the self-healing loop of one turn.
type supervisor struct {
	maxRetries int
	retries    int
	state      supervisorState
	log        *zap.Logger
}

func newSupervisor(maxRetries int, log *zap.Logger) *supervisor {
	return &supervisor{maxRetries: maxRetries, state: stateIdle, log: log}
}

func (s *supervisor) begin() {
	s.state = stateAttempting
}

// failure records a failed attempt and reports whether another one is
// allowed. Non-retryable failures give up immediately regardless of budget.
func (s *supervisor) failure(err error) bool {
	if !retryable(err) {
		s.state = stateGivenUp
		return false
	}
	if s.retries >= s.maxRetries {
		s.log.Warn("correction budget exhausted",
			zap.Int("retries", s.retries),
			zap.Error(err))
		s.state = stateGivenUp
		return false
	}
	s.retries++
	s.state = stateRetrying
	s.log.Info("retrying after stage failure",
		zap.Int("retry", s.retries),
		zap.Int("max", s.maxRetries),
		zap.Error(err))
	return true
}

func (s *supervisor) success() {
	s.state = stateSucceeded
}

// attempts is the total number of generation attempts made, including the
// first one.
func (s *supervisor) attempts() int {
	return s.retries + 1
}
