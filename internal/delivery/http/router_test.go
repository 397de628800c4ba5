package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetuphere/internal/delivery/http/controllers"
	"meetuphere/internal/delivery/http/middleware"
	"meetuphere/internal/domain"
)

type stubIngest struct{ accepted int }

func (s *stubIngest) Accept(context.Context, *domain.CheckinPayload) error {
	s.accepted++
	return nil
}

type stubContacts struct{}

func (stubContacts) GetByOwnerID(_ context.Context, ownerID string) (*domain.ContactRecord, error) {
	return &domain.ContactRecord{OwnerID: ownerID, PhoneNumber: "+15551234567"}, nil
}

func (stubContacts) Save(context.Context, *domain.ContactRecord) error { return nil }

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (string, error) {
	if token == "good" {
		return "12345", nil
	}
	return "", errors.New("bad token")
}

type stubProcessor struct{}

func (stubProcessor) Process(context.Context, *domain.CheckinEvent) domain.Outcome {
	return domain.Outcome{State: domain.StateNoMatch}
}

func (stubProcessor) HandleMessage(context.Context, []byte) domain.Outcome {
	return domain.Outcome{State: domain.StateNoMatch}
}

func TestNewAPIRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ingest := &stubIngest{}
	mux := NewAPIRouter(logger,
		controllers.NewCheckinController(logger, ingest, ""),
		controllers.NewPhoneController(logger, stubContacts{}),
		stubVerifier{},
		middleware.NewCORSPolicy([]string{"https://app.example.com"}),
	)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		header     map[string]string
		wantStatus int
		wantCORS   string
	}{
		{name: "healthz", method: http.MethodGet, target: "/healthz", wantStatus: http.StatusOK},
		{
			name:       "push",
			method:     http.MethodPost,
			target:     "/handle_push",
			body:       url.Values{"checkin": {`{"user":{"id":"1"},"venue":{"location":{"lat":1,"lng":2}}}`}}.Encode(),
			header:     map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
			wantStatus: http.StatusOK,
		},
		{name: "push wrong method", method: http.MethodGet, target: "/handle_push", wantStatus: http.StatusMethodNotAllowed},
		{name: "phone without token", method: http.MethodGet, target: "/me/phone", wantStatus: http.StatusUnauthorized},
		{name: "phone with token", method: http.MethodGet, target: "/me/phone", header: map[string]string{"Authorization": "Bearer good"}, wantStatus: http.StatusOK},
		{name: "phone with bad token", method: http.MethodPut, target: "/me/phone", body: `{"phone":"+15551234567"}`, header: map[string]string{"Authorization": "Bearer bad"}, wantStatus: http.StatusUnauthorized},
		{
			name:       "phone preflight",
			method:     http.MethodOptions,
			target:     "/me/phone",
			header:     map[string]string{"Origin": "https://app.example.com", "Access-Control-Request-Method": "PUT"},
			wantStatus: http.StatusNoContent,
			wantCORS:   "https://app.example.com",
		},
		{
			name:       "phone response carries cors",
			method:     http.MethodGet,
			target:     "/me/phone",
			header:     map[string]string{"Origin": "https://app.example.com", "Authorization": "Bearer good"},
			wantStatus: http.StatusOK,
			wantCORS:   "https://app.example.com",
		},
		{
			name:       "push preflight not served",
			method:     http.MethodOptions,
			target:     "/handle_push",
			header:     map[string]string{"Origin": "https://app.example.com"},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://test"+tt.target, strings.NewReader(tt.body))
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)
			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCORS, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
	assert.Equal(t, 1, ingest.accepted)
}

func TestNewWorkerRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := NewWorkerRouter(controllers.NewWorkerController(logger, stubProcessor{}, false))

	req := httptest.NewRequest(http.MethodPost, "http://test/checkin", strings.NewReader(`{"fid":"1","lat":1,"lng":2}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "no_match")

	req = httptest.NewRequest(http.MethodGet, "http://test/healthz", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
