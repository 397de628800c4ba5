package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetuphere/internal/domain"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{name: "contact not found", err: domain.ErrContactNotFound, wantStatus: http.StatusNotFound, wantCode: ErrCodeNotFound, wantMsg: "no phone number registered"},
		{name: "wrapped validation", err: fmt.Errorf("%w: lat out of range", domain.ErrValidation), wantStatus: http.StatusBadRequest, wantCode: ErrCodeBadRequest, wantMsg: "invalid check-in: lat out of range"},
		{name: "broker gone", err: fmt.Errorf("%w: amqp connection closed", domain.ErrSourceClosed), wantStatus: http.StatusServiceUnavailable, wantCode: ErrCodeUnavailable, wantMsg: "queue unavailable"},
		{name: "unmapped", err: errors.New("pq: connection refused"), wantStatus: http.StatusInternalServerError, wantCode: ErrCodeInternalError, wantMsg: "failed to load phone number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteDomainError(rr, tt.err, "failed to load phone number")

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
			var envelope APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			assert.Nil(t, envelope.Data)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantCode, envelope.Error.Code)
			assert.Equal(t, tt.wantMsg, envelope.Error.Message)
		})
	}
}

func TestWriteJSONSuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSONSuccess(rr, http.StatusOK, map[string]string{"phone": "+15551234567"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"phone":"+15551234567"},"error":null}`, rr.Body.String())
}
