package producer

import "context"

// NoopHandler is a ProducerHandler with no domain logic of its own: a
// config schema, max-retry count and optional estimator, but an Invoke that
// always fails. It exists so a caller that has no real provider wired for
// an alias can still register something under SimulatedHandler — since
// SimulatedHandler never calls through to Invoke, this combination gives
// ModeSimulated runs a handler for every blueprint alias without requiring
// a concrete provider integration.
type NoopHandler struct {
	Schema       []byte
	Retries      int
	Estimator    Estimator
}

func (h *NoopHandler) Invoke(ctx context.Context, req Request, rt Runtime) (Response, error) {
	return Response{
		Status: StatusFailed,
		Diagnostics: &Diagnostics{
			Code:    "no_provider_configured",
			Message: "no concrete producer handler is registered for this alias",
		},
	}, nil
}

func (h *NoopHandler) ConfigSchema() []byte { return h.Schema }
func (h *NoopHandler) MaxRetries() int      { return h.Retries }
func (h *NoopHandler) Estimate() Estimator  { return h.Estimator }
