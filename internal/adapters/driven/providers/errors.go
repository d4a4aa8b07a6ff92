package providers

import (
	"fmt"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// UnknownAction builds the error every adapter returns for an action
// name it does not support.
func UnknownAction(provider domain.Provider, action string) error {
	return fmt.Errorf("%w: %q (provider %s)", domain.ErrUnknownAction, action, provider)
}

// StringParam extracts a required string parameter for an action.
func StringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: missing parameter %q", domain.ErrInvalidInput, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: parameter %q must be a non-empty string", domain.ErrInvalidInput, key)
	}
	return s, nil
}

// OptionalStringParam extracts an optional string parameter.
func OptionalStringParam(params map[string]any, key string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
