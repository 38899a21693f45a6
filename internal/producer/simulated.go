package producer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"contentforge/internal/value"
)

// SimulatedHandler wraps any ProducerHandler and is used when
// runtime.mode == simulated: it never calls Invoke on the wrapped handler,
// instead synthesizing a deterministic placeholder artefact per requested
// id. This is the reference "no external provider" implementation exercised
// throughout the test suite (§4.6), letting plans run end to end without
// network access or provider credentials.
type SimulatedHandler struct {
	inner ProducerHandler

	// MimeType is the placeholder content type reported for every produced
	// artefact. Defaults to "text/plain" when empty.
	MimeType string
}

// NewSimulatedHandler wraps inner so callers can still reach its
// ConfigSchema/MaxRetries/Estimate metadata while Invoke is replaced with
// deterministic placeholder output.
func NewSimulatedHandler(inner ProducerHandler) *SimulatedHandler {
	return &SimulatedHandler{inner: inner}
}

func (h *SimulatedHandler) Invoke(ctx context.Context, req Request, rt Runtime) (Response, error) {
	mime := h.MimeType
	if mime == "" {
		mime = "text/plain"
	}

	results := make([]ArtefactResult, 0, len(req.Produces))
	for _, id := range req.Produces {
		if rt.Cancelled() {
			return Response{Status: StatusFailed}, context.Canceled
		}

		placeholder := simulatedPlaceholder(req.JobID, id.String())
		results = append(results, ArtefactResult{
			ArtefactID: id,
			Status:     StatusSucceeded,
			Blob:       []byte(placeholder),
			MimeType:   mime,
		})
	}

	if rt.Notifications != nil {
		rt.Notifications.Notify(fmt.Sprintf("simulated invoke for job %s produced %d artefact(s)", req.JobID, len(results)))
	}

	return Response{Status: StatusSucceeded, Artefacts: results}, nil
}

// simulatedPlaceholder derives deterministic, human-inspectable placeholder
// content from (jobID, artefactID) so repeated simulated runs of the same
// plan produce byte-identical output, matching inputsHash cache-hit
// behavior exactly as a real producer would for unchanged inputs.
func simulatedPlaceholder(jobID, artefactID string) string {
	sum := sha256.Sum256([]byte(jobID + "|" + artefactID))
	return fmt.Sprintf("simulated:%s:%s", artefactID, hex.EncodeToString(sum[:8]))
}

func (h *SimulatedHandler) ConfigSchema() []byte { return h.inner.ConfigSchema() }
func (h *SimulatedHandler) MaxRetries() int      { return h.inner.MaxRetries() }
func (h *SimulatedHandler) Estimate() Estimator  { return h.inner.Estimate() }

// InlineValue is a convenience constructor for handlers that prefer to
// report small structured output as Inline rather than a Blob.
func InlineValue(v value.Value) *value.Value { return &v }
