package dashboard

import (
	"errors"
	"fmt"

	"signaldash/pkg/signalapi"
)

// Connectivity is the outcome class of the most recent fetch.
type Connectivity string

const (
	StatusLoading     Connectivity = "loading"
	StatusOK          Connectivity = "ok"
	StatusDegraded    Connectivity = "degraded"
	StatusUnreachable Connectivity = "unreachable"
)

// StatusTarget displays connectivity. It is separate from RenderTarget so a
// failed poll can update it without touching the rendered data.
type StatusTarget interface {
	SetStatus(c Connectivity, message string)
}

// Outcome is the result of one fetch. Err is nil on success; BackendError is
// the backend's own note on an otherwise successful response.
type Outcome struct {
	Err          error
	BackendError string
}

// Reporter maps fetch outcomes to connectivity and a localized message.
type Reporter struct {
	target StatusTarget
	locale Locale
	last   Connectivity
}

// NewReporter creates a reporter writing to target.
func NewReporter(target StatusTarget, locale Locale) *Reporter {
	return &Reporter{target: target, locale: locale}
}

// Classify returns the connectivity and message for o without side effects.
func (r *Reporter) Classify(o Outcome) (Connectivity, string) {
	l := r.locale
	if o.Err == nil {
		if o.BackendError != "" {
			return StatusDegraded, l.Message(MsgStatusBackend) + ": " + o.BackendError
		}
		return StatusOK, l.Message(MsgStatusOK)
	}

	switch signalapi.ReasonOf(o.Err) {
	case signalapi.ReasonHTTPStatus:
		msg := l.Message(MsgStatusHTTP)
		if st := httpStatus(o.Err); st != 0 {
			msg = fmt.Sprintf("%s (HTTP %d)", msg, st)
		}
		return StatusDegraded, msg
	case signalapi.ReasonParse:
		return StatusDegraded, l.Message(MsgStatusParse)
	default:
		return StatusUnreachable, l.Message(MsgStatusUnreachable)
	}
}

// Report classifies o, updates the status surface and returns the state.
func (r *Reporter) Report(o Outcome) Connectivity {
	c, msg := r.Classify(o)
	r.last = c
	if r.target != nil {
		r.target.SetStatus(c, msg)
	}
	return c
}

// Loading shows the initial state before the first fetch completes. It is
// not a fetch outcome, so Last is left untouched.
func (r *Reporter) Loading() {
	if r.target != nil {
		r.target.SetStatus(StatusLoading, r.locale.Message(MsgStatusLoading))
	}
}

// Last returns the most recently reported state, or "" before the first report.
func (r *Reporter) Last() Connectivity { return r.last }

// MultiStatus fans status updates out to several surfaces.
type MultiStatus []StatusTarget

func (m MultiStatus) SetStatus(c Connectivity, msg string) {
	for _, t := range m {
		t.SetStatus(c, msg)
	}
}

func httpStatus(err error) int {
	var fe *signalapi.FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}
