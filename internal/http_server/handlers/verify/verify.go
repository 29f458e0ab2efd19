package verify

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"handoff_service/internal/handoff"
	resp "handoff_service/internal/lib/api/response"
	sl "handoff_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

//go:embed verify.html
var verifyPage []byte

type Request struct {
	Code string `json:"code" validate:"required,numeric"`
}

// Page serves the verification form.
func Page() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(verifyPage)
	}
}

// New handles POST /verify: exchanges a verification code for a one-time
// download link. The link is returned as an HTML fragment the page injects.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	handoffService *handoff.Handoff,
	baseURL string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Warn("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		token, err := handoffService.VerifyCode(ctx, req.Code)
		if err != nil {
			if errors.Is(err, handoff.ErrInvalidOrExpired) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("invalid or expired code"))

				return
			}

			log.Error("failed to verify code", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		downloadURL := fmt.Sprintf("%s/download/%s", requestBaseURL(r, baseURL), token.Token)

		render.Status(r, http.StatusOK)
		render.HTML(w, r, fmt.Sprintf(
			`Verified!<br><a href="%s">Click here to download your file</a>`,
			downloadURL,
		))
	}
}

// requestBaseURL prefers the configured base URL and falls back to the
// scheme and host the request arrived on.
func requestBaseURL(r *http.Request, baseURL string) string {
	if baseURL != "" {
		return baseURL
	}

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}
