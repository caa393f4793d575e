package llm

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsModelSwitchable(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		want       bool
	}{
		{"model not found", http.StatusNotFound, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"unauthorized", http.StatusUnauthorized, true},
		{"forbidden", http.StatusForbidden, true},
		{"invalid request", http.StatusBadRequest, true},
		{"server error", http.StatusInternalServerError, false},
		{"bad gateway", http.StatusBadGateway, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := &ProviderError{StatusCode: tc.statusCode}
			assert.Equal(t, tc.want, IsModelSwitchable(err))
		})
	}
}

func TestIsModelSwitchableNonProviderError(t *testing.T) {
	assert.False(t, IsModelSwitchable(errors.New("connection refused")))
	assert.False(t, IsModelSwitchable(nil))
}

func TestIsModelSwitchableWrappedError(t *testing.T) {
	inner := &ProviderError{StatusCode: http.StatusTooManyRequests}
	wrapped := fmt.Errorf("call failed: %w", inner)
	assert.True(t, IsModelSwitchable(wrapped))
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{StatusCode: 404, Body: "model not found"}
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}
