// Package telegram publishes items to a Telegram channel or group.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/partho5/CryptoXPoster/internal/publisher"
	"github.com/partho5/CryptoXPoster/internal/queue"
	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64
}

type Publisher struct {
	bot    *tele.Bot
	chatID int64
	log    logx.Logger
}

func New(cfg Config, log logx.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// No poller: this bot only sends.
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: 15 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Publisher{bot: b, chatID: cfg.ChatID, log: log}, nil
}

func (p *Publisher) Publish(ctx context.Context, it queue.Item) queue.Outcome {
	_ = ctx
	text, err := publisher.FormatPost(it)
	if err != nil {
		return queue.Skipped(err.Error())
	}

	msg, err := p.bot.Send(tele.ChatID(p.chatID), text, tele.NoPreview)
	if err != nil {
		return queue.Failed(err)
	}
	p.log.Debug("telegram message sent",
		logx.Int("message_id", msg.ID),
		logx.Int64("chat_id", p.chatID))
	return queue.Published("")
}
