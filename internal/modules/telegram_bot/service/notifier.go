package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/belgrano9/discord-bot-sub000/internal/models"
	"github.com/belgrano9/discord-bot-sub000/pkg/logger"
)

// HasSubscription: чат жив, пока Telegram не ответил "bot was blocked" /
// "chat not found". Таких помечаем мёртвыми, движок сам вычистит их алерты.
func (t *Telegram) HasSubscription(subID int64) bool {
	t.deadMu.Lock()
	defer t.deadMu.Unlock()
	return !t.dead[subID]
}

func (t *Telegram) markDead(subID int64) {
	t.deadMu.Lock()
	t.dead[subID] = true
	t.deadMu.Unlock()
}

func (t *Telegram) Notify(ctx context.Context, subID int64, ev models.AlertNotification) error {
	var text string
	switch ev.Kind {
	case models.AlertPercent:
		text = fmt.Sprintf("🔔 %s вырос до %.2f (+%.2f%% от %.2f)",
			ev.Ticker, ev.CurrentPrice, ev.PercentChange, ev.ReferencePrice)
	default:
		verb := "вырос до"
		if ev.Direction == models.DirectionDown {
			verb = "упал до"
		}
		text = fmt.Sprintf("🔔 %s %s %.2f (уровень %.2f)",
			ev.Ticker, verb, ev.CurrentPrice, ev.Threshold)
	}

	if _, err := t.Send(ctx, subID, text); err != nil {
		if isDeadChatErr(err) {
			logger.Info("telegram: chat %d unreachable, dropping: %v", subID, err)
			t.markDead(subID)
		}
		return err
	}
	return nil
}

func isDeadChatErr(err error) bool {
	s := err.Error()
	return strings.Contains(s, "bot was blocked") ||
		strings.Contains(s, "chat not found") ||
		strings.Contains(s, "user is deactivated")
}
