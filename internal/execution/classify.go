package execution

import (
	"contentforge/internal/errs"
	"contentforge/internal/producer"
)

// classifyFailure derives the errs.Kind and storage diagnostics fields for a
// failed Invoke, per §4.4 step 6's four failure classes. A handler that
// returns structured producer.Diagnostics is trusted over a bare Go error;
// an unclassified error defaults to errs.KindInternal, since the engine
// cannot otherwise tell whether the fault is the blueprint author's,
// the network's, or the provider's.
func classifyFailure(err error, diag *producer.Diagnostics) (kind errs.Kind, code, message string) {
	if fe, ok := errs.As(err); ok {
		return fe.Kind, fe.Code, fe.Error()
	}

	if diag != nil {
		switch {
		case diag.Recoverable:
			return errs.KindRecoverable, diag.Code, diag.Message
		case diag.Code == "rate_limited" || diag.Code == "timeout" || diag.Code == "network_error":
			return errs.KindTransient, diag.Code, diag.Message
		case diag.Code != "":
			return errs.KindPermanent, diag.Code, diag.Message
		}
	}

	msg := "producer invocation failed"
	if err != nil {
		msg = err.Error()
	}
	return errs.KindInternal, "internal_error", msg
}

// isRetryable reports whether kind warrants a backoff-and-retry rather than
// an immediate terminal failure.
func isRetryable(kind errs.Kind) bool {
	return kind == errs.KindTransient
}
