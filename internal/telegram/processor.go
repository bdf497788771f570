package telegram

import (
	"context"
	"fmt"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/rs/zerolog"

	"empirepilot/internal/metrics"
)

type UpdateDeduper interface {
	MarkFirst(ctx context.Context, key string) (bool, error)
}

// Processor drops updates Telegram delivers more than once.
type Processor struct {
	Base    ext.BaseProcessor
	Dedupe  UpdateDeduper
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

func (p Processor) ProcessUpdate(d *ext.Dispatcher, b *gotgbot.Bot, ctx *ext.Context) error {
	if !p.admit(ctx.UpdateId) {
		return nil
	}
	return p.Base.ProcessUpdate(d, b, ctx)
}

func (p Processor) admit(updateID int64) bool {
	if p.Metrics != nil {
		p.Metrics.UpdatesTotal.Inc()
	}
	if p.Dedupe == nil {
		return true
	}
	first, err := p.Dedupe.MarkFirst(context.Background(), fmt.Sprintf("tg:update:%d", updateID))
	if err != nil {
		p.Logger.Error().Err(err).Int64("update_id", updateID).Msg("failed to dedupe update")
		return true
	}
	return first
}
