package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"handoff_service/internal/lib/code"
	sl "handoff_service/internal/lib/logger"
	"handoff_service/internal/models"
	"handoff_service/internal/storage"

	"github.com/google/uuid"
)

var (
	// ErrInvalidOrExpired covers both "never issued" and "expired" on
	// purpose, so responses do not reveal which codes were ever live.
	ErrInvalidOrExpired   = errors.New("invalid or expired")
	ErrCodeSpaceExhausted = errors.New("could not generate a unique code")
)

// maxCodeAttempts bounds regeneration on unique-constraint collisions.
// With a 6-digit space and hourly expiry, collisions stay rare until the
// live set approaches the space itself.
const maxCodeAttempts = 5

type CodeSaver interface {
	SaveVerification(ctx context.Context, v models.Verification) error
	DeleteVerification(ctx context.Context, code string) error
}

type CodeProvider interface {
	Verification(ctx context.Context, code string) (models.Verification, error)
}

type TokenStore interface {
	PutToken(ctx context.Context, t models.DownloadToken, ttl time.Duration) error
	ConsumeToken(ctx context.Context, token string) (models.DownloadToken, error)
}

type Handoff struct {
	log            *slog.Logger
	codeSaver      CodeSaver
	codeProvider   CodeProvider
	tokens         TokenStore
	codeLength     int
	codeTTL        time.Duration
	tokenTTL       time.Duration
	revokeOnVerify bool
}

func New(
	log *slog.Logger,
	codeSaver CodeSaver,
	codeProvider CodeProvider,
	tokens TokenStore,
	codeLength int,
	codeTTL, tokenTTL time.Duration,
	revokeOnVerify bool,
) *Handoff {
	return &Handoff{
		log:            log,
		codeSaver:      codeSaver,
		codeProvider:   codeProvider,
		tokens:         tokens,
		codeLength:     codeLength,
		codeTTL:        codeTTL,
		tokenTTL:       tokenTTL,
		revokeOnVerify: revokeOnVerify,
	}
}

// IssueCode persists a verification record for a stored file and returns the
// code the bot should DM to the uploader. Collisions with existing codes are
// retried with a fresh code before giving up.
func (h *Handoff) IssueCode(ctx context.Context, fileRef, fileName string) (string, error) {
	const op = "handoff.IssueCode"

	log := h.log.With(slog.String("op", op))

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		c, err := code.Generate(h.codeLength)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		now := time.Now()
		v := models.Verification{
			Code:      c,
			FileRef:   fileRef,
			FileName:  fileName,
			CreatedAt: now,
			ExpiresAt: now.Add(h.codeTTL),
		}

		err = h.codeSaver.SaveVerification(ctx, v)
		if err == nil {
			log.Info("verification code issued", slog.String("file_name", fileName))
			return c, nil
		}

		if errors.Is(err, storage.ErrCodeExists) {
			log.Warn("code collision, retrying", slog.Int("attempt", attempt+1))
			continue
		}

		log.Error("failed to save verification", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return "", fmt.Errorf("%s: %w", op, ErrCodeSpaceExhausted)
}

// VerifyCode exchanges a live verification code for a single-use download
// token. The token snapshots the file metadata; later changes to the
// verification record do not affect it.
func (h *Handoff) VerifyCode(ctx context.Context, c string) (models.DownloadToken, error) {
	const op = "handoff.VerifyCode"

	log := h.log.With(slog.String("op", op))

	v, err := h.codeProvider.Verification(ctx, c)
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			log.Warn("verification code rejected")
			return models.DownloadToken{}, ErrInvalidOrExpired
		}

		log.Error("failed to look up code", sl.Err(err))

		return models.DownloadToken{}, fmt.Errorf("%s: %w", op, err)
	}

	t := models.DownloadToken{
		Token:      uuid.NewString(),
		FileRef:    v.FileRef,
		FileName:   v.FileName,
		SourceCode: v.Code,
		IssuedAt:   time.Now(),
	}

	if err := h.tokens.PutToken(ctx, t, h.tokenTTL); err != nil {
		log.Error("failed to store token", sl.Err(err))

		return models.DownloadToken{}, fmt.Errorf("%s: %w", op, err)
	}

	if h.revokeOnVerify {
		// Burning the code here means losing the link costs the upload.
		// Failure to revoke is logged, not fatal: the reaper will get it.
		if err := h.codeSaver.DeleteVerification(ctx, v.Code); err != nil {
			log.Error("failed to revoke code after verify", sl.Err(err))
		}
	}

	log.Info("download token issued", slog.String("file_name", t.FileName))

	return t, nil
}

// Redeem resolves a token to the file location, consuming the token and
// revoking its source code. The store's ConsumeToken is the single point
// that decides which of two racing redemptions wins.
func (h *Handoff) Redeem(ctx context.Context, token string) (models.FileLocation, error) {
	const op = "handoff.Redeem"

	log := h.log.With(slog.String("op", op))

	t, err := h.tokens.ConsumeToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			log.Warn("download token rejected")
			return models.FileLocation{}, ErrInvalidOrExpired
		}

		log.Error("failed to consume token", sl.Err(err))

		return models.FileLocation{}, fmt.Errorf("%s: %w", op, err)
	}

	// The token is already gone, so the download goes ahead even if the
	// code revocation fails; expiry bounds how long the stale row lives.
	if err := h.codeSaver.DeleteVerification(ctx, t.SourceCode); err != nil {
		log.Error("failed to revoke source code", sl.Err(err))
	}

	log.Info("token redeemed", slog.String("file_name", t.FileName))

	return models.FileLocation{
		FileRef:  t.FileRef,
		FileName: t.FileName,
	}, nil
}
