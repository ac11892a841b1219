package usecase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Alwanly/guang-panel/internal/server/panel/dto"
	"github.com/Alwanly/guang-panel/pkg/logger"
	"github.com/Alwanly/guang-panel/pkg/msglog"
)

const (
	categoryMessages = "messages"
	keyMaxShow       = "maxShow"
)

func (uc *UseCase) MessageLog() dto.MessagesResponse {
	rows := uc.Messages.Rows()
	return dto.MessagesResponse{
		Rows:     rows,
		Count:    len(rows),
		Capacity: uc.Messages.Capacity(),
		Visible:  len(rows) > 0,
	}
}

// PostMessage appends a caller supplied message. An empty level means DEBUG.
// accepted is false when the same message was already posted within the
// same second and the entry was dropped.
func (uc *UseCase) PostMessage(level, message string) (e msglog.Entry, accepted bool, err error) {
	lvl := msglog.Debug
	if level != "" {
		if lvl, err = msglog.ParseLevel(level); err != nil {
			return msglog.Entry{}, false, err
		}
	}
	e, accepted = uc.Messages.Append(msglog.NewEntry(uc.Now(), lvl, message))
	return e, accepted, nil
}

// StoredSettings lists every persisted panel setting.
func (uc *UseCase) StoredSettings(ctx context.Context) ([]dto.SettingResponse, error) {
	out := []dto.SettingResponse{}
	if uc.Settings == nil {
		return out, nil
	}
	all, err := uc.Settings.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		out = append(out, dto.SettingResponse{
			Category:  s.Category,
			Key:       s.Key,
			Value:     s.Value,
			UpdatedAt: s.UpdatedAt,
		})
	}
	return out, nil
}

func (uc *UseCase) RemoveMessage(id string) bool {
	return uc.Messages.Remove(id)
}

func (uc *UseCase) ClearMessages() {
	uc.Messages.Clear()
}

// SetCapacity resizes the message log and persists the new size.
func (uc *UseCase) SetCapacity(ctx context.Context, n int) error {
	if err := uc.Messages.SetCapacity(n); err != nil {
		return err
	}
	logger.AddToContext(ctx, logger.Int("capacity", n))
	return uc.saveSetting(ctx, categoryMessages, keyMaxShow, strconv.Itoa(n))
}

// RestoreCapacity applies a previously saved capacity, if any.
func (uc *UseCase) RestoreCapacity(ctx context.Context) error {
	if uc.Settings == nil {
		return nil
	}
	v, ok, err := uc.Settings.Get(ctx, categoryMessages, keyMaxShow)
	if err != nil || !ok {
		return err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("stored %s.%s is not a number: %w", categoryMessages, keyMaxShow, err)
	}
	return uc.Messages.SetCapacity(n)
}

// RequestTestMessages asks the backend to emit count synthetic messages.
// A count of zero does nothing.
func (uc *UseCase) RequestTestMessages(ctx context.Context, count, rounds, delay int) error {
	if count == 0 {
		return nil
	}
	if count < 0 || rounds < 0 || delay < 0 {
		return fmt.Errorf("%w: count=%d rounds=%d delay=%d", ErrInvalidAmount, count, rounds, delay)
	}

	if err := uc.Backend.RandomMessages(ctx, count, rounds, delay); err != nil {
		uc.reportFailure(ctx, "Failed to request test messages", err)
		return err
	}
	return nil
}

func (uc *UseCase) saveSetting(ctx context.Context, category, key, value string) error {
	if uc.Settings == nil {
		return nil
	}
	return uc.Settings.Set(ctx, category, key, value)
}
