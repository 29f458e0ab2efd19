package intake_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"handoff_service/internal/handoff"
	"handoff_service/internal/intake"
	"handoff_service/internal/models"
	"handoff_service/internal/storage"
	"handoff_service/internal/storage/memory"

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
	if !ok {
		return models.Verification{}, storage.ErrCodeNotFound
	}
	return v, nil
}

func (f *fakeCodeStore) DeleteVerification(_ context.Context, code string) error {
	delete(f.records, code)
	return nil
}

type fakePublisher struct {
	sent []models.CodeIssued
}

func (f *fakePublisher) SendCodeIssued(_ context.Context, _ string, msg models.CodeIssued) error {
	f.sent = append(f.sent, msg)
	return nil
}

func newConsumer(codes *fakeCodeStore, pub *fakePublisher) *intake.Consumer {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := handoff.New(log, codes, codes, memory.NewTokenStore(), 6, time.Hour, 10*time.Minute, false)

	return intake.New(log, svc, pub, "code_issued", "https://files.example.com")
}

func TestHandleMessageIssuesCode(t *testing.T) {
	codes := &fakeCodeStore{records: map[string]models.Verification{}}
	pub := &fakePublisher{}
	c := newConsumer(codes, pub)

	c.HandleMessage(context.Background(), []byte(
		`{"file_url":"https://cdn/f1.png","file_name":"f1.png","reply_to":"user#42"}`,
	))

	require.Len(t, pub.sent, 1)
	notice := pub.sent[0]
	assert.Equal(t, "user#42", notice.ReplyTo)
	assert.Len(t, notice.Code, 6)
	assert.Equal(t, "https://files.example.com/verify", notice.VerifyURL)

	// The published code really is live in the store.
	v, err := codes.Verification(context.Background(), notice.Code)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/f1.png", v.FileRef)
}

func TestHandleMessageMalformed(t *testing.T) {
	pub := &fakePublisher{}
	c := newConsumer(&fakeCodeStore{records: map[string]models.Verification{}}, pub)

	c.HandleMessage(context.Background(), []byte(`{not json`))

	assert.Empty(t, pub.sent)
}

func TestHandleMessageMissingFields(t *testing.T) {
	pub := &fakePublisher{}
	c := newConsumer(&fakeCodeStore{records: map[string]models.Verification{}}, pub)

	c.HandleMessage(context.Background(), []byte(`{"file_url":"https://cdn/f1.png"}`))

	assert.Empty(t, pub.sent)
}
