// Package producer defines the stable surface the core offers producer
// implementations (§4.6): a ProducerHandler invoked once per job, a
// validated Runtime accessor set, and the request/response envelope
// carrying resolved inputs in and materialized artefacts out.
//
// Concrete provider integrations (LLM, TTS, image, video, FFmpeg rendering)
// are external collaborators per the core's Non-goals; this package only
// specifies the contract they implement.
package producer

import (
	"context"

	"contentforge/internal/canonid"
	"contentforge/internal/value"
)

// Mode selects whether Invoke contacts a real provider or returns a
// deterministic placeholder, per §4.6 "runtime.mode".
type Mode string

const (
	ModeNormal    Mode = "normal"
	ModeSimulated Mode = "simulated"
)

// Status is the terminal outcome Invoke reports for the job as a whole.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ArtefactResult is one produced artefact's outcome within a Response.
// Exactly one of Blob/Inline is set when Status is succeeded.
type ArtefactResult struct {
	ArtefactID canonid.ID
	Status     Status
	Blob       []byte
	MimeType   string
	Inline     *value.Value
}

// Request is the per-job invocation envelope a handler receives.
type Request struct {
	JobID    string
	Produces []canonid.ID
	Provider string
	Model    string
	RateKey  string

	// Inputs maps each declared input name to the canonical id it resolves
	// to at this job's coordinate; Invoke resolves the actual value through
	// Runtime.Inputs.Input(id). FanInInputs carries the ordered id sequence
	// a collector gathered for a fan-in input name.
	Inputs      map[string]canonid.ID
	FanInInputs map[string][]canonid.ID
}

// Diagnostics carries handler-reported failure context, folded into the
// event log's Diagnostics on a failed Invoke (§4.4 step 6, §7).
type Diagnostics struct {
	Code              string
	Message           string
	Raw               string
	Provider          string
	Model             string
	ProviderRequestID string
	Recoverable       bool
}

// Response is what Invoke returns.
type Response struct {
	Status      Status
	Artefacts   []ArtefactResult
	Diagnostics *Diagnostics
}

// InputAccessor resolves a canonical input id to its current runtime value.
type InputAccessor interface {
	Input(id canonid.ID) (value.Value, bool)
}

// SecretResolver scopes secret lookups to the handler invoking them, kept
// out of the general config/value model so a leaked log attribute can never
// carry a raw credential — callers attach NewLogger's masq redactor
// (internal/observability) as an additional layer of defense.
type SecretResolver interface {
	Secret(ctx context.Context, name string) (string, error)
}

// Notifier is an optional progress-message channel surfaced through the
// executor's observer (§4.6 "runtime.notifications").
type Notifier interface {
	Notify(message string)
}

// Runtime is the dependency bundle Invoke receives alongside Request.
type Runtime struct {
	Mode    Mode
	Inputs  InputAccessor
	Config  map[string]any
	Secrets SecretResolver

	// Notifications is nil when the executor was not configured with a
	// progress sink; handlers must guard against a nil Notifier.
	Notifications Notifier

	Cancel <-chan struct{}
}

// Cancelled reports whether the runtime's cancel signal has fired, the
// cooperative check handlers are expected to make before each significant
// external call (§5 "Cancellation").
func (r Runtime) Cancelled() bool {
	select {
	case <-r.Cancel:
		return true
	default:
		return false
	}
}

// EstimateResult is a handler's pure cost prediction for a not-yet-executed
// job, aggregated by internal/cost (§4.6, §4.8).
type EstimateResult struct {
	Cost          float64
	IsPlaceholder bool
	HasRange      bool
	RangeMin      float64
	RangeMax      float64
}

// Estimator is the optional pure cost-prediction function a handler may
// register alongside Invoke.
type Estimator func(req Request) (EstimateResult, error)

// ProducerHandler is the opaque function-plus-metadata contract a producer
// implementation satisfies, per §4.6.
type ProducerHandler interface {
	// Invoke performs the job's work (or, in ModeSimulated, returns a
	// deterministic placeholder) and returns every produced artefact's
	// outcome.
	Invoke(ctx context.Context, req Request, rt Runtime) (Response, error)

	// ConfigSchema returns the JSON schema (as raw bytes) runtime.config
	// must validate against, or nil if this handler accepts any config.
	ConfigSchema() []byte

	// MaxRetries bounds how many times a transient failure from this
	// handler is retried before being reclassified permanent (§4.4 step 6).
	MaxRetries() int

	// Estimate is this handler's cost estimator, or nil if it has none
	// (the job is then marked "no cost data" per §4.8).
	Estimate() Estimator
}
