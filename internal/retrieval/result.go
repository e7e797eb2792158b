package retrieval

import "github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"

// Outcome is the terminal state of one retrieval.
type Outcome string

const (
	OutcomeUnauthorized    Outcome = "unauthorized"
	OutcomeMailboxNotFound Outcome = "mailbox_not_found"
	OutcomeNoCodeFound     Outcome = "no_code_found"
	OutcomeFound           Outcome = "found"
	OutcomeError           Outcome = "error"
)

// Result is what Retrieve returns. Code is set only for OutcomeFound; Kind,
// Detail and Err only for OutcomeError.
type Result struct {
	Outcome Outcome
	Code    string
	Rule    string
	Scanned int

	Kind   apperror.Kind
	Detail string
	Err    error
}

func found(code, rule string, scanned int) Result {
	return Result{Outcome: OutcomeFound, Code: code, Rule: rule, Scanned: scanned}
}

func failed(err error) Result {
	return Result{
		Outcome: OutcomeError,
		Kind:    apperror.KindOf(err),
		Detail:  err.Error(),
		Err:     err,
	}
}
