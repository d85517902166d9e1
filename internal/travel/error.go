package travel

import (
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("malformed provider response")

type InputError struct {
	fields map[string][]string
}

func newInputError() *InputError {
	return &InputError{
		fields: make(map[string][]string),
	}
}

func IsInputError(err error) *InputError {
	if err == nil {
		return nil
	}

	var inputError *InputError

	if errors.As(err, &inputError) {
		return inputError
	}

	return nil
}

func (ie *InputError) fieldsCount() int {
	return len(ie.fields)
}

func (ie *InputError) addError(field, msg string) {
	ie.fields[field] = append(ie.fields[field], msg)
}

func (ie *InputError) Error() string {
	return fmt.Sprintf("%+v", ie.fields)
}

func (ie *InputError) Fields() map[string][]string {
	return ie.fields
}

// HTTPError is returned when an upstream answered with an error status.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream %s responded with status %d: %s", e.URL, e.StatusCode, e.Body)
}

func IsHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}

	var httpError *HTTPError

	if errors.As(err, &httpError) {
		return httpError
	}

	return nil
}

// ProviderError reports a successful response whose content could not be used.
type ProviderError struct {
	Provider string
	Reason   string
}

func NewProviderError(provider, format string, v ...any) *ProviderError {
	return &ProviderError{Provider: provider, Reason: fmt.Sprintf(format, v...)}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return ErrMalformed
}

func IsProviderError(err error) *ProviderError {
	if err == nil {
		return nil
	}

	var providerError *ProviderError

	if errors.As(err, &providerError) {
		return providerError
	}

	return nil
}
