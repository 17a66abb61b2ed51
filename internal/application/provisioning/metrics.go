package provisioning

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

var (
	signupOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pineapple_signup_outcomes_total",
			Help: "Signup attempts by outcome",
		},
		[]string{"outcome"},
	)
	compensationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pineapple_compensation_failures_total",
			Help: "Compensation steps that failed and left an orphan for repair",
		},
		[]string{"step"},
	)
	repairOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pineapple_repair_outcomes_total",
			Help: "Login repair checks by outcome",
		},
		[]string{"outcome"},
	)
)

func recordSignup(err error) {
	signupOutcomes.WithLabelValues(outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domerrors.ErrInvalidUsername):
		return "invalid_username"
	case errors.Is(err, domerrors.ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, domerrors.ErrEmailInUse):
		return "email_in_use"
	case errors.Is(err, domerrors.ErrWeakPassword):
		return "weak_password"
	case errors.Is(err, domerrors.ErrProfileWriteFailure):
		return "profile_write_failure"
	case errors.Is(err, domerrors.ErrNetwork):
		return "network_error"
	default:
		return "error"
	}
}
