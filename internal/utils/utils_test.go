package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wht-store-pay/internal/constant"
)

func TestDoWithRetryIfStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("rejected")
	err := DoWithRetryIf(context.Background(), 5, time.Millisecond,
		func(err error) bool { return !errors.Is(err, permanent) },
		func() error { calls++; return permanent })
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoWithRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := DoWithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestHttpDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "abc", r.Header.Get("X-Test"))
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"name":"VALIDATION_ERROR"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"PAY-1"}`))
	}))
	defer srv.Close()

	h := http.Header{}
	h.Set("X-Test", "abc")
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, HttpDoJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL+"/ok", h, map[string]string{"a": "b"}, &out))
	assert.Equal(t, "PAY-1", out.ID)

	err := HttpDoJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL+"/bad", h, []byte(`{}`), nil)
	var se *HttpStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "VALIDATION_ERROR")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "6.00", FormatAmount(decimal.NewFromInt(6), 2))
	assert.Equal(t, "1.24", FormatAmount(decimal.RequireFromString("1.235"), 2))
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorWithTrace(constant.CodeMultiPayeeViolation, "t-1")
	assert.Equal(t, constant.CodeMultiPayeeViolation, resp.Code)
	assert.NotEmpty(t, resp.MsgEN)
	assert.Equal(t, "t-1", resp.TraceID)
	assert.Equal(t, "Unknown error", Error(987654).MsgEN)
}
