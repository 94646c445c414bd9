package commands

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalidPayload marks handler payload contract violations. The wrapped
// message is surfaced to the peer verbatim.
var ErrInvalidPayload = errors.New("invalid payload")

// RequireKeys faults when any of the named keys is absent from the payload.
// The fault message lists every missing key in sorted order.
func RequireKeys(command string, payload map[string]any, keys ...string) error {
	missing := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := payload[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s payload must contain keys: %s",
		ErrInvalidPayload, command, strings.Join(missing, ", "))
}

// StringField extracts a required non-empty string value.
func StringField(command string, payload map[string]any, key string) (string, error) {
	raw, ok := payload[key]
	if !ok {
		return "", RequireKeys(command, payload, key)
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", faultf(command, "key %q must be a non-empty string", key)
	}
	return s, nil
}

// NumberField extracts a required numeric value.
func NumberField(command string, payload map[string]any, key string) (float64, error) {
	raw, ok := payload[key]
	if !ok {
		return 0, RequireKeys(command, payload, key)
	}
	v, ok := asFloat(raw)
	if !ok {
		return 0, faultf(command, "key %q must be a number", key)
	}
	return v, nil
}

// IntField extracts an optional whole-number value with a default.
func IntField(command string, payload map[string]any, key string, def int) (int, error) {
	raw, ok := payload[key]
	if !ok {
		return def, nil
	}
	v, ok := asFloat(raw)
	if !ok || v != math.Trunc(v) {
		return 0, faultf(command, "key %q must be an integer", key)
	}
	return int(v), nil
}

// BoolField extracts an optional boolean value with a default.
func BoolField(command string, payload map[string]any, key string, def bool) (bool, error) {
	raw, ok := payload[key]
	if !ok {
		return def, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, faultf(command, "key %q must be a boolean", key)
	}
	return v, nil
}

// FloatListField extracts an optional fixed-length numeric list. A missing
// key yields the default slice.
func FloatListField(command string, payload map[string]any, key string, length int, def []float64) ([]float64, error) {
	raw, ok := payload[key]
	if !ok {
		return def, nil
	}
	list, ok := raw.([]any)
	if !ok || len(list) != length {
		return nil, faultf(command, "key %q must be a list of %d numbers", key, length)
	}
	out := make([]float64, length)
	for i, item := range list {
		v, ok := asFloat(item)
		if !ok {
			return nil, faultf(command, "key %q must be a list of %d numbers", key, length)
		}
		out[i] = v
	}
	return out, nil
}

func faultf(command, format string, args ...any) error {
	return fmt.Errorf("%w: %s payload %s", ErrInvalidPayload, command, fmt.Sprintf(format, args...))
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
