package genre

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	DefaultTemperature = 0.9
	MinTemperature     = 0.0
	MaxTemperature     = 1.3

	// MaxSeedLength is counted in characters after trimming
	MaxSeedLength = 500
)

// GenerateRequest is the decoded body of POST /api/generate
type GenerateRequest struct {
	Seed        string  `json:"seed"`
	Temperature float64 `json:"temperature"`
}

// DefaultRequest returns the request used for an empty body
func DefaultRequest() GenerateRequest {
	return GenerateRequest{Temperature: DefaultTemperature}
}

// DecodeRequest parses a request body leniently. A body that is itself a JSON
// string is decoded a second time, and anything other than an object yields
// the defaults. Only syntactically broken JSON is rejected.
func DecodeRequest(body []byte) (GenerateRequest, error) {
	req := DefaultRequest()

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return req, nil
	}

	var top json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return req, fmt.Errorf("%w: body is not valid JSON: %v", ErrInvalidRequest, err)
	}

	if top[0] == '"' {
		var inner string
		if err := json.Unmarshal(top, &inner); err != nil {
			return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		var reparsed json.RawMessage
		if err := json.Unmarshal([]byte(inner), &reparsed); err != nil {
			// A plain string body carries no fields
			return req, nil
		}
		top = reparsed
	}

	if top[0] != '{' {
		return req, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(top, &fields); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if raw, ok := fields["seed"]; ok {
		seed, err := decodeSeed(raw)
		if err != nil {
			return req, err
		}
		req.Seed = seed
	}

	if raw, ok := fields["temperature"]; ok {
		req.Temperature = decodeTemperature(raw)
	}

	return req, nil
}

func decodeSeed(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: seed: %v", ErrInvalidRequest, err)
		}
		return s, nil
	case 'n', 'f':
		return "", nil
	case 't':
		return "true", nil
	case '{', '[':
		return "", fmt.Errorf("%w: seed must be a string", ErrInvalidRequest)
	default:
		// zero means no seed; other numbers are used as text
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return "", fmt.Errorf("%w: seed: %v", ErrInvalidRequest, err)
		}
		if n == 0 {
			return "", nil
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
}

func decodeTemperature(raw json.RawMessage) float64 {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return DefaultTemperature
	}

	var t float64
	switch val := v.(type) {
	case float64:
		t = val
	case bool:
		if !val {
			return DefaultTemperature
		}
		t = 1
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return DefaultTemperature
		}
		t = parsed
	default:
		return DefaultTemperature
	}

	if math.IsNaN(t) || math.IsInf(t, 0) {
		return DefaultTemperature
	}
	return t
}

// NormalizeTemperature clamps t into [MinTemperature, MaxTemperature].
// An explicit 0 stays 0.
func NormalizeTemperature(t float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return DefaultTemperature
	}
	return math.Min(MaxTemperature, math.Max(MinTemperature, t))
}

// NormalizeSeed trims the seed and enforces MaxSeedLength
func NormalizeSeed(seed string) (string, error) {
	seed = strings.TrimSpace(seed)
	if n := utf8.RuneCountInString(seed); n > MaxSeedLength {
		return "", fmt.Errorf("%w: %d characters (max %d)", ErrSeedTooLong, n, MaxSeedLength)
	}
	return seed, nil
}
