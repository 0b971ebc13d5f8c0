package publisher

import (
	"context"

	"github.com/partho5/CryptoXPoster/internal/queue"
	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

// LogPublisher is the dry-run target: it renders the post and logs it
// instead of sending it anywhere. Default when no target is configured,
// so a fresh checkout drains the queue visibly without credentials.
type LogPublisher struct {
	log logx.Logger
}

func NewLog(log logx.Logger) *LogPublisher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, it queue.Item) queue.Outcome {
	_ = ctx
	text, err := FormatPost(it)
	if err != nil {
		return queue.Skipped(err.Error())
	}
	p.log.Info("dry-run publish", logx.String("post", text))
	return queue.Published("")
}
