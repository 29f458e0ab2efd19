package download

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"handoff_service/internal/handoff"
	resp "handoff_service/internal/lib/api/response"
	sl "handoff_service/internal/lib/logger"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// New handles GET /download/{token}: consumes the token and redirects the
// browser to the stored file. A token works exactly once.
func New(
	log *slog.Logger,
	handoffService *handoff.Handoff,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.download.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := chi.URLParam(r, "token")
		if token == "" {
			log.Warn("missing download token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing token"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		location, err := handoffService.Redeem(ctx, token)
		if err != nil {
			if errors.Is(err, handoff.ErrInvalidOrExpired) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("invalid or expired download link"))

				return
			}

			log.Error("failed to redeem token", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		http.Redirect(w, r, location.FileRef, http.StatusFound)
	}
}
