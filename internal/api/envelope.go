package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is bumped when the envelope shape changes.
const EnvelopeVersion = 1

// Envelope wraps every JSON response body.
type Envelope struct {
	Version int       `json:"v"`
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// EnvelopeTransformer is a huma transformer that wraps response bodies in an
// Envelope. Raw byte bodies (cover images) and envelopes pass through untouched.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case []byte, Envelope, *Envelope:
		return v, nil
	case *APIError:
		return Envelope{Version: EnvelopeVersion, Success: false, Error: body}, nil
	}

	if !strings.HasPrefix(status, "2") {
		return Envelope{Version: EnvelopeVersion, Success: false, Data: v}, nil
	}
	return Envelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
}
