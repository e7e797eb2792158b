package commands

import (
	"errors"
	"fmt"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/retrieval"
)

var kindMessages = map[apperror.Kind]string{
	apperror.KindValidation:   "❌ Invalid request.",
	apperror.KindUnauthorized: "❌ No access to this email.",
	apperror.KindNotFound:     "❌ Email not found.",
	apperror.KindAuth:         "❌ The mail server rejected the stored credentials.",
	apperror.KindConnection:   "❌ Could not reach the mail server.",
	apperror.KindProtocol:     "❌ The mail server sent an unexpected response.",
	apperror.KindTimeout:      "⌛ The mail server did not respond in time.",
	apperror.KindNoCode:       "⚠️ No code found in the recent mails.",
	apperror.KindInternal:     "❌ Something went wrong, try again later.",
}

// KindMessage is the user-facing text for an error kind.
func KindMessage(kind apperror.Kind) string {
	if msg, ok := kindMessages[kind]; ok {
		return msg
	}
	return kindMessages[apperror.KindInternal]
}

// RenderResult formats a retrieval result. The raw cause is only shown to
// the admin.
func RenderResult(address string, res retrieval.Result, admin bool) string {
	switch res.Outcome {
	case retrieval.OutcomeFound:
		return fmt.Sprintf("🔑 Code for %s: %s", address, res.Code)
	case retrieval.OutcomeUnauthorized:
		return KindMessage(apperror.KindUnauthorized)
	case retrieval.OutcomeMailboxNotFound:
		return KindMessage(apperror.KindNotFound)
	case retrieval.OutcomeNoCodeFound:
		if res.Scanned == 0 {
			return "⚠️ No mails found."
		}
		return fmt.Sprintf("⚠️ No code found in the last %d mail(s).", res.Scanned)
	default:
		msg := KindMessage(res.Kind)
		if admin && res.Detail != "" {
			msg += "\n(" + res.Detail + ")"
		}
		return msg
	}
}

// renderError formats a store error. Validation messages are always shown
// since they describe the caller's own input.
func renderError(err error, admin bool) string {
	kind := apperror.KindOf(err)
	msg := KindMessage(kind)
	var appErr *apperror.Error
	switch {
	case kind == apperror.KindValidation && errors.As(err, &appErr) && appErr.Err != nil:
		return "❌ " + appErr.Err.Error()
	case admin:
		return msg + "\n(" + err.Error() + ")"
	default:
		return msg
	}
}
