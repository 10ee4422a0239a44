package genre

import (
	"context"
	"errors"
	"net/http"

	"github.com/Conceptual-Machines/microgenre-api/internal/llm"
	"github.com/Conceptual-Machines/microgenre-api/internal/metrics"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrSeedTooLong     = errors.New("seed is too long")
	ErrEmptyOutput     = errors.New("model returned no output")
	ErrMalformedOutput = errors.New("model output is not valid JSON")
	ErrInvalidCard     = errors.New("model output does not match the genre card schema")
	ErrTimeout         = errors.New("llm request timed out")
)

const genericErrorMessage = "Server error"

// StatusFor maps an error from DecodeRequest or Service.Generate to the HTTP
// status and message sent to the client.
func StatusFor(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	// Upstream status wins, including 401/403 from a bad API key
	var perr *llm.ProviderError
	if errors.As(err, &perr) && perr.StatusCode > 0 {
		return perr.StatusCode, messageOf(perr)
	}

	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrSeedTooLong):
		return http.StatusBadRequest, messageOf(err)
	case errors.Is(err, llm.ErrProviderNotConfigured), errors.Is(err, llm.ErrUnknownProvider):
		return http.StatusInternalServerError, messageOf(err)
	case errors.Is(err, ErrEmptyOutput), errors.Is(err, ErrMalformedOutput), errors.Is(err, ErrInvalidCard):
		return http.StatusBadGateway, messageOf(err)
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrTimeout.Error()
	}

	return http.StatusInternalServerError, messageOf(err)
}

func messageOf(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return genericErrorMessage
}

// outcomeFor labels an error for metrics
func outcomeFor(err error) string {
	var perr *llm.ProviderError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	case errors.As(err, &perr):
		return metrics.OutcomeUpstreamError
	case errors.Is(err, ErrEmptyOutput), errors.Is(err, ErrMalformedOutput), errors.Is(err, ErrInvalidCard):
		return metrics.OutcomeInvalidOutput
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrSeedTooLong):
		return metrics.OutcomeInvalidRequest
	default:
		return metrics.OutcomeError
	}
}
