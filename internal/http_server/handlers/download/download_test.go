package download_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"handoff_service/internal/handoff"
	"handoff_service/internal/http_server/handlers/download"
	"handoff_service/internal/models"
	"handoff_service/internal/storage"
	"handoff_service/internal/storage/memory"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCodeStore struct {
	records map[string]models.Verification
}

func (f *fakeCodeStore) SaveVerification(_ context.Context, v models.Verification) error {
	f.records[v.Code] = v
	return nil
}

func (f *fakeCodeStore) Verification(_ context.Context, code string) (models.Verification, error) {
	v, ok := f.records[code]
	if !ok {
		return models.Verification{}, storage.ErrCodeNotFound
	}
	return v, nil
}

func (f *fakeCodeStore) DeleteVerification(_ context.Context, code string) error {
	delete(f.records, code)
	return nil
}

func newTestSetup(t *testing.T) (*chi.Mux, *handoff.Handoff) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	codes := &fakeCodeStore{records: map[string]models.Verification{
		"123456": {
			Code:      "123456",
			FileRef:   "https://cdn/f1.png",
			FileName:  "f1.png",
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}}
	svc := handoff.New(log, codes, codes, memory.NewTokenStore(), 6, time.Hour, 10*time.Minute, false)

	r := chi.NewRouter()
	r.Get("/download/{token}", download.New(log, svc))

	return r, svc
}

func TestDownloadRedirects(t *testing.T) {
	router, svc := newTestSetup(t)

	token, err := svc.VerifyCode(context.Background(), "123456")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/download/"+token.Token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://cdn/f1.png", rec.Header().Get("Location"))
}

func TestDownloadSecondAttemptRejected(t *testing.T) {
	router, svc := newTestSetup(t)

	token, err := svc.VerifyCode(context.Background(), "123456")
	require.NoError(t, err)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/download/"+token.Token, nil))
	require.Equal(t, http.StatusFound, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/download/"+token.Token, nil))

	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Contains(t, second.Body.String(), "invalid or expired download link")
}

func TestDownloadUnknownToken(t *testing.T) {
	router, _ := newTestSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/download/not-a-token", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
