package nutrition

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an analysis failure.
type Kind int

const (
	// KindTransport is a network or non-2xx status failure calling the
	// inference API (timeouts included).
	KindTransport Kind = iota

	// KindMalformedReply is a successful call whose body could not be
	// parsed as the expected JSON object.
	KindMalformedReply

	// KindIncompleteReply is a parsed reply missing at least one required
	// numeric key. Missing keys fail loudly, they are never defaulted.
	KindIncompleteReply
)

// AnalysisError describes why an analysis could not produce a record.
type AnalysisError struct {
	Kind Kind

	// Status is the upstream HTTP status for transport failures, 0
	// otherwise.
	Status int

	// Message is the human-readable cause, surfaced verbatim to the user
	// in diagnostic contexts.
	Message string

	// Raw carries the unparsed reply text for malformed replies.
	Raw string

	// Missing names the absent required keys for incomplete replies.
	Missing []string

	err error
}

func (e *AnalysisError) Error() string {
	switch e.Kind {
	case KindMalformedReply:
		return fmt.Sprintf("failed to parse model reply: %s", e.Message)
	case KindIncompleteReply:
		return fmt.Sprintf("model reply missing required keys: %s", strings.Join(e.Missing, ", "))
	default:
		if e.Status != 0 {
			return fmt.Sprintf("API request failed with status %d: %s", e.Status, e.Message)
		}
		return fmt.Sprintf("API request failed: %s", e.Message)
	}
}

func (e *AnalysisError) Unwrap() error {
	return e.err
}

// AsAnalysisError unwraps err into an *AnalysisError if there is one.
func AsAnalysisError(err error) (*AnalysisError, bool) {
	var aerr *AnalysisError
	if errors.As(err, &aerr) {
		return aerr, true
	}
	return nil, false
}
