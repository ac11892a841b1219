package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Alwanly/guang-panel/pkg/logger"
	"github.com/Alwanly/guang-panel/pkg/msglog"
	"github.com/Alwanly/guang-panel/pkg/pubsub"
)

const publishTimeout = 2 * time.Second

// ForwardMessages publishes every accepted log entry as JSON on channel.
func (uc *UseCase) ForwardMessages(channel string) {
	if uc.Pub == nil || channel == "" {
		return
	}
	uc.Messages.OnAppend(func(e msglog.Entry) {
		payload, err := json.Marshal(e)
		if err != nil {
			uc.Logger.WithError(err).Error("failed to encode message for publishing")
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			if err := uc.Pub.Publish(ctx, channel, string(payload)); err != nil {
				uc.Logger.WithError(err).Warn("failed to publish message",
					logger.String(logger.FieldMessageID, e.ID))
			}
		}()
	})
}

// IngestMessages appends every message received on ch until ctx is done
// or ch is closed.
func (uc *UseCase) IngestMessages(ctx context.Context, ch <-chan pubsub.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			uc.IngestMessage(m.Payload)
		}
	}
}

// IngestMessage appends a message pushed by the backend. A JSON entry keeps
// its own timestamp and level; anything else is logged as INFO text.
func (uc *UseCase) IngestMessage(payload string) (msglog.Entry, bool) {
	var in struct {
		Timestamp time.Time    `json:"timestamp"`
		Level     msglog.Level `json:"level"`
		Message   string       `json:"message"`
	}
	if err := json.Unmarshal([]byte(payload), &in); err != nil || in.Message == "" {
		text := strings.TrimSpace(payload)
		if text == "" {
			return msglog.Entry{}, false
		}
		return uc.Messages.Append(msglog.NewEntry(uc.Now(), msglog.Info, text))
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = uc.Now()
	}
	return uc.Messages.Append(msglog.NewEntry(in.Timestamp, in.Level, in.Message))
}
