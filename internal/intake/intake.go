// Package intake receives "file stored" messages from the bot collaborator
// and answers with an issued verification code. The bot owns file storage
// and user messaging; this side only mints codes.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"handoff_service/internal/handoff"
	sl "handoff_service/internal/lib/logger"
	"handoff_service/internal/models"
)

type Publisher interface {
	SendCodeIssued(ctx context.Context, queue string, msg models.CodeIssued) error
}

type Consumer struct {
	log            *slog.Logger
	handoffService *handoff.Handoff
	publisher      Publisher
	notifyQueue    string
	baseURL        string
}

func New(
	log *slog.Logger,
	handoffService *handoff.Handoff,
	publisher Publisher,
	notifyQueue string,
	baseURL string,
) *Consumer {
	return &Consumer{
		log:            log,
		handoffService: handoffService,
		publisher:      publisher,
		notifyQueue:    notifyQueue,
		baseURL:        baseURL,
	}
}

// HandleMessage processes one intake delivery. Errors are logged and
// swallowed: a malformed message is dropped, and an issue failure is left
// for the bot to retry by re-uploading.
func (c *Consumer) HandleMessage(ctx context.Context, body []byte) {
	const op = "intake.HandleMessage"

	log := c.log.With(slog.String("op", op))

	var msg models.FileStored
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error("failed to unmarshal intake message", sl.Err(err))
		return
	}

	if msg.FileRef == "" || msg.FileName == "" || msg.ReplyTo == "" {
		log.Warn("intake message missing fields, dropping")
		return
	}

	code, err := c.handoffService.IssueCode(ctx, msg.FileRef, msg.FileName)
	if err != nil {
		log.Error("failed to issue code", sl.Err(err))
		return
	}

	notice := models.CodeIssued{
		ReplyTo:   msg.ReplyTo,
		Code:      code,
		VerifyURL: fmt.Sprintf("%s/verify", c.baseURL),
	}

	if err := c.publisher.SendCodeIssued(ctx, c.notifyQueue, notice); err != nil {
		log.Error("failed to publish code notification", sl.Err(err))
		return
	}

	log.Info("code issued for upload", slog.String("file_name", msg.FileName))
}
