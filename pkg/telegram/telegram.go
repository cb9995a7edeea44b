// Package telegram adapts the Telegram Bot API (via telebot) to the
// transport and membership interfaces the conversation core depends on.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"gemvault/internal/bot"
	"gemvault/internal/model"
)

const updateTimeout = 30 * time.Second

// Config selects the update mode and credentials for the Telegram side.
type Config struct {
	Token      string
	UpdateMode string // auto, polling, webhook
	WebhookURL string
}

// Bot wraps the telebot instance. It implements bot.Transport and
// service.MembershipChecker; inbound updates are normalized and handed
// to the attached router.
type Bot struct {
	tb         *tele.Bot
	webhook    *tele.Webhook
	useWebhook bool
	router     *bot.Router
	logger     *zap.Logger
}

// New creates and configures the Telegram bot. A router must be attached
// before Start.
func New(cfg Config, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.UpdateMode))
	if mode == "" {
		mode = "auto"
	}

	useWebhook := true
	switch mode {
	case "polling":
		useWebhook = false
	case "webhook":
		useWebhook = true
	default: // auto
		useWebhook = strings.TrimSpace(cfg.WebhookURL) != ""
	}

	var poller tele.Poller
	var webhook *tele.Webhook
	if useWebhook {
		if strings.TrimSpace(cfg.WebhookURL) == "" {
			return nil, fmt.Errorf("webhook url is required in webhook mode")
		}
		webhook = &tele.Webhook{
			Listen:   "", // mounted on the gin server instead of telebot's own listener
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
		poller = webhook
	} else {
		poller = &tele.LongPoller{Timeout: 10 * time.Second}
	}

	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: poller,
		OnError: func(err error, c tele.Context) {
			logger.Error("telebot error", zap.Error(err))
		},
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create telebot: %w", err)
	}

	b := &Bot{
		tb:         tb,
		webhook:    webhook,
		useWebhook: useWebhook,
		logger:     logger,
	}
	b.registerHandlers()
	return b, nil
}

// AttachRouter wires the conversation machine. Updates arriving before
// this call are dropped.
func (b *Bot) AttachRouter(router *bot.Router) {
	b.router = router
}

// WebhookHandler returns the handler to mount on the HTTP server, or nil
// in long-polling mode.
func (b *Bot) WebhookHandler() http.Handler {
	if !b.useWebhook {
		return nil
	}
	return b.webhook
}

// Start begins update processing. Blocks until Stop.
func (b *Bot) Start() {
	if b.useWebhook {
		b.logger.Info("telegram bot starting", zap.String("mode", "webhook"))
	} else {
		// Long polling requires any leftover webhook to be removed first.
		if err := b.tb.RemoveWebhook(true); err != nil {
			b.logger.Warn("remove webhook before polling failed", zap.Error(err))
		}
		b.logger.Info("telegram bot starting", zap.String("mode", "polling"))
	}
	b.tb.Start()
}

// Stop shuts down update processing.
func (b *Bot) Stop() {
	b.tb.Stop()
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", func(c tele.Context) error {
		up := b.baseUpdate(c)
		up.Text = strings.TrimSpace("/start " + c.Message().Payload)
		return b.dispatch(up)
	})
	b.tb.Handle(tele.OnText, func(c tele.Context) error {
		up := b.baseUpdate(c)
		up.Text = c.Text()
		return b.dispatch(up)
	})
	b.tb.Handle(tele.OnCallback, func(c tele.Context) error {
		defer func() {
			_ = c.Respond()
		}()
		up := b.baseUpdate(c)
		up.Action = strings.TrimSpace(strings.TrimPrefix(c.Callback().Data, "\f"))
		return b.dispatch(up)
	})
	b.tb.Handle(tele.OnDocument, func(c tele.Context) error {
		doc := c.Message().Document
		if doc == nil {
			return nil
		}
		up := b.baseUpdate(c)
		up.DocumentFileID = doc.FileID
		up.DocumentName = doc.FileName
		up.DocumentSize = int64(doc.FileSize)
		return b.dispatch(up)
	})
	b.tb.Handle(tele.OnPhoto, func(c tele.Context) error {
		photo := c.Message().Photo
		if photo == nil {
			return nil
		}
		up := b.baseUpdate(c)
		up.PhotoFileID = photo.FileID
		return b.dispatch(up)
	})
}

func (b *Bot) baseUpdate(c tele.Context) bot.Update {
	sender := c.Sender()
	if sender == nil {
		return bot.Update{}
	}
	return bot.Update{
		UserID:   sender.ID,
		Username: sender.Username,
	}
}

func (b *Bot) dispatch(up bot.Update) error {
	if b.router == nil || up.UserID == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	if err := b.router.HandleUpdate(ctx, up); err != nil {
		b.logger.Error("handle update failed",
			zap.Int64("user_id", up.UserID),
			zap.Error(err),
		)
	}
	return nil
}

// recipient addresses a chat by its raw identifier, numeric or @username.
type recipient string

func (r recipient) Recipient() string { return string(r) }

func chatRecipient(userID int64) recipient {
	return recipient(strconv.FormatInt(userID, 10))
}

// SendText implements bot.Transport.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := b.tb.Send(chatRecipient(chatID), text)
	return err
}

// SendFile implements bot.Transport. Payload references are platform file
// ids, re-sent by reference; text items carry the payload inline.
func (b *Bot) SendFile(ctx context.Context, chatID int64, item *model.FileItem) error {
	to := chatRecipient(chatID)

	var what interface{}
	switch item.Type {
	case model.FileTypeText:
		what = item.PayloadRef
	case model.FileTypePhoto:
		what = &tele.Photo{File: tele.File{FileID: item.PayloadRef}}
	case model.FileTypeVideo:
		what = &tele.Video{File: tele.File{FileID: item.PayloadRef}, FileName: item.Name}
	case model.FileTypeAudio:
		what = &tele.Audio{File: tele.File{FileID: item.PayloadRef}, FileName: item.Name}
	case model.FileTypeVoice:
		what = &tele.Voice{File: tele.File{FileID: item.PayloadRef}}
	default:
		what = &tele.Document{File: tele.File{FileID: item.PayloadRef}, FileName: item.Name}
	}

	_, err := b.tb.Send(to, what)
	return err
}

// UploadDocument implements bot.Transport for generated artifacts.
func (b *Bot) UploadDocument(ctx context.Context, chatID int64, name string, payload []byte) error {
	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(payload)),
		FileName: name,
	}
	_, err := b.tb.Send(chatRecipient(chatID), doc)
	return err
}

// IsMember implements service.MembershipChecker. Lookup failures surface
// as errors; the delivery gate treats them as not a member.
func (b *Bot) IsMember(ctx context.Context, channelID string, userID int64) (bool, error) {
	member, err := b.tb.ChatMemberOf(recipient(channelID), chatRecipient(userID))
	if err != nil {
		return false, err
	}
	switch member.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true, nil
	case tele.Restricted:
		return member.Rights.CanSendMessages, nil
	default:
		return false, nil
	}
}
