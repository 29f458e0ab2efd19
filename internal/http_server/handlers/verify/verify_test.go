package verify_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"handoff_service/internal/handoff"
	"handoff_service/internal/http_server/handlers/verify"
	"handoff_service/internal/models"
	"handoff_service/internal/storage"
	"handoff_service/internal/storage/memory"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCodeStore struct {
	records map[string]models.Verification
}

func (f *fakeCodeStore) SaveVerification(_ context.Context, v models.Verification) error {
	if _, ok := f.records[v.Code]; ok {
		return storage.ErrCodeExists
	}
	f.records[v.Code] = v
	return nil
}

func (f *fakeCodeStore) Verification(_ context.Context, code string) (models.Verification, error) {
	v, ok := f.records[code]
	if !ok || v.IsExpired() {
		return models.Verification{}, storage.ErrCodeNotFound
	}
	return v, nil
}

func (f *fakeCodeStore) DeleteVerification(_ context.Context, code string) error {
	delete(f.records, code)
	return nil
}

func newTestRouter(codes *fakeCodeStore) *chi.Mux {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := handoff.New(log, codes, codes, memory.NewTokenStore(), 6, time.Hour, 10*time.Minute, false)

	r := chi.NewRouter()
	r.Get("/verify", verify.Page())
	r.Post("/verify", verify.New(log, validator.New(), svc, "https://files.example.com"))

	return r
}

func seededStore(code string) *fakeCodeStore {
	return &fakeCodeStore{records: map[string]models.Verification{
		code: {
			Code:      code,
			FileRef:   "https://cdn/f1.png",
			FileName:  "f1.png",
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}}
}

func TestVerifyPage(t *testing.T) {
	router := newTestRouter(&fakeCodeStore{records: map[string]models.Verification{}})

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "verification code")
}

func TestVerifySuccess(t *testing.T) {
	router := newTestRouter(seededStore("123456"))

	req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(`{"code":"123456"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://files.example.com/download/")
}

func TestVerifyMissingCode(t *testing.T) {
	router := newTestRouter(seededStore("123456"))

	req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")
}

func TestVerifyNonNumericCode(t *testing.T) {
	router := newTestRouter(seededStore("123456"))

	req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(`{"code":"abcdef"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyUnknownCode(t *testing.T) {
	router := newTestRouter(seededStore("123456"))

	req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(`{"code":"999999"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// Same message whether the code never existed or expired.
	assert.Contains(t, rec.Body.String(), "invalid or expired code")
}

func TestVerifyBadJSON(t *testing.T) {
	router := newTestRouter(seededStore("123456"))

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
