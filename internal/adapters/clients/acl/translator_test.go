package acl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/clients"
	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
)

func TestDecodeResponse(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		got, err := DecodeResponse[payload](io.NopCloser(strings.NewReader(`{"name":"go"}`)))
		require.NoError(t, err)
		assert.Equal(t, "go", got.Name)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := DecodeResponse[payload](io.NopCloser(strings.NewReader(`{`)))
		require.ErrorContains(t, err, "decoding response")
	})

	t.Run("nil body", func(t *testing.T) {
		_, err := DecodeResponse[payload](nil)
		require.Error(t, err)
	})
}

func TestTranslateSlice(t *testing.T) {
	double := func(v *int) (int, error) {
		if *v < 0 {
			return 0, domain.NewValidationError("value", "must not be negative")
		}

		return *v * 2, nil
	}

	got, err := TranslateSlice([]int{1, 2, 3}, double)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, got)

	empty, err := TranslateSlice(nil, double)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = TranslateSlice([]int{1, -1}, double)
	require.ErrorContains(t, err, "translating item 1")
	assert.True(t, domain.IsValidation(err))
}

func TestValidateRequired(t *testing.T) {
	require.NoError(t, ValidateRequired("x", "field"))

	err := ValidateRequired("", "field")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestParseErrorResponse(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantNil     bool
		wantCode    string
		wantMessage string
	}{
		{"nested", `{"error":{"code":"E1","message":"nested"}}`, false, "E1", "nested"},
		{"flat", `{"code":"E2","message":"flat"}`, false, "E2", "flat"},
		{"empty object", `{}`, true, "", ""},
		{"not json", `<html>`, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseErrorResponse(strings.NewReader(tt.body))
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.GetCode())
			assert.Equal(t, tt.wantMessage, got.GetMessage())
		})
	}

	assert.Nil(t, ParseErrorResponse(nil))
}

func TestMapHTTPError(t *testing.T) {
	response := func(status int, body string) *http.Response {
		return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
	}

	t.Run("success is nil", func(t *testing.T) {
		assert.NoError(t, MapHTTPError(response(http.StatusOK, ""), nil, "svc", "op"))
	})

	t.Run("client errors", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want string
		}{
			{"circuit open", clients.ErrCircuitOpen, "circuit breaker open"},
			{"status error", errors.Join(clients.ErrMaxRetriesExceeded, &clients.StatusError{StatusCode: http.StatusBadGateway}), "status 502"},
			{"max retries", clients.ErrMaxRetriesExceeded, "max retries exceeded"},
			{"transport", errors.New("connection reset"), "connection reset"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := MapHTTPError(nil, tt.err, "svc", "op")
				assert.True(t, domain.IsUnavailable(err))
				assert.Contains(t, err.Error(), tt.want)
			})
		}
	})

	t.Run("timeouts keep the deadline", func(t *testing.T) {
		for _, cause := range []error{
			fmt.Errorf("get: %w", context.DeadlineExceeded),
			&net.DNSError{Err: "i/o timeout", IsTimeout: true},
		} {
			err := MapHTTPError(nil, cause, "svc", "op")
			assert.True(t, domain.IsUnavailable(err))
			require.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Contains(t, err.Error(), "op timed out")
		}
	})

	t.Run("nil response", func(t *testing.T) {
		assert.True(t, domain.IsUnavailable(MapHTTPError(nil, nil, "svc", "op")))
	})

	t.Run("not found", func(t *testing.T) {
		assert.True(t, domain.IsNotFound(MapHTTPError(response(http.StatusNotFound, ""), nil, "svc", "op")))
	})

	t.Run("server error includes downstream message", func(t *testing.T) {
		err := MapHTTPError(response(http.StatusInternalServerError, `{"message":"db down"}`), nil, "svc", "op")
		assert.True(t, domain.IsUnavailable(err))
		assert.Contains(t, err.Error(), "db down")
	})
}
