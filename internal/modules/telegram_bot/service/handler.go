package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/belgrano9/discord-bot-sub000/internal/models"
	"github.com/belgrano9/discord-bot-sub000/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `Команды:
/alert add TICKER percent|price VALUE — поставить алерт
/alerts — список алертов
/alert_remove N — снять алерт номер N
/price [TICKER] — текущая цена
/track SYMBOL — периодический трекинг цены
/untrack SYMBOL — остановить трекинг
/fullpos BUY|SELL QTY [RR] [SIDE_EFFECT] — вход + OCO-защита`

func (t *Telegram) handleUpdate(ctx context.Context, upd tgbot.Update) {
	if upd.CallbackQuery != nil {
		t.handleCallback(ctx, upd.CallbackQuery.Message.Chat.ID, upd.CallbackQuery)
		return
	}
	if upd.Message == nil || !upd.Message.IsCommand() {
		return
	}

	chatID := upd.Message.Chat.ID
	args := strings.Fields(upd.Message.CommandArguments())

	switch upd.Message.Command() {
	case "start", "help":
		_, _ = t.Send(ctx, chatID, helpText)
	case "alert":
		t.cmdAlert(ctx, chatID, args)
	case "alerts":
		t.cmdAlerts(ctx, chatID)
	case "alert_remove":
		t.cmdAlertRemove(ctx, chatID, args)
	case "price":
		t.cmdPrice(ctx, chatID, args)
	case "track":
		t.cmdTrack(ctx, chatID, args)
	case "untrack":
		t.cmdUntrack(ctx, chatID, args)
	case "fullpos":
		// подтверждение долгое, не блокируем цикл обновлений
		go t.cmdFullPos(ctx, chatID, args)
	default:
		_, _ = t.Send(ctx, chatID, "Не знаю такой команды. /help")
	}
}

// /alert add TICKER percent|price VALUE
func (t *Telegram) cmdAlert(ctx context.Context, chatID int64, args []string) {
	if len(args) != 4 || args[0] != "add" {
		_, _ = t.Send(ctx, chatID, "Формат: /alert add TICKER percent|price VALUE")
		return
	}

	ticker := strings.ToUpper(args[1])
	kind := models.AlertKind(strings.ToLower(args[2]))
	if kind != models.AlertPercent && kind != models.AlertPrice {
		_, _ = t.Send(ctx, chatID, "Тип алерта: percent или price")
		return
	}

	value, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		_, _ = t.SendF(ctx, chatID, "Не понял значение %q", args[3])
		return
	}

	// референс фиксируем в момент постановки, синхронно
	ref, err := t.quotes.CurrentPrice(ctx, ticker)
	if err != nil {
		logger.Error("telegram: reference price for %s: %v", ticker, err)
		_, _ = t.SendF(ctx, chatID, "❌ Не смог получить цену %s: %v", ticker, err)
		return
	}

	alert := models.Alert{
		Ticker:         ticker,
		Kind:           kind,
		Threshold:      value,
		ReferencePrice: ref,
		CreatedAt:      time.Now(),
		SubscriptionID: chatID,
	}

	if err := t.store.Add(ctx, alert); err != nil {
		logger.Error("telegram: add alert: %v", err)
		_, _ = t.Send(ctx, chatID, "❌ Не смог сохранить алерт")
		return
	}

	switch kind {
	case models.AlertPercent:
		_, _ = t.SendF(ctx, chatID, "✅ Алерт: %s +%.2f%% от %.2f", ticker, value, ref)
	default:
		_, _ = t.SendF(ctx, chatID, "✅ Алерт: %s на уровне %.2f (сейчас %.2f)", ticker, value, ref)
	}
}

func (t *Telegram) cmdAlerts(ctx context.Context, chatID int64) {
	list, err := t.store.AlertsFor(ctx, chatID)
	if err != nil {
		logger.Error("telegram: list alerts: %v", err)
		_, _ = t.Send(ctx, chatID, "❌ Не смог прочитать алерты")
		return
	}
	if len(list) == 0 {
		_, _ = t.Send(ctx, chatID, "Алертов нет")
		return
	}

	var b strings.Builder
	b.WriteString("Твои алерты:\n")
	for i, a := range list {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(a.Ticker)
		if a.Kind == models.AlertPercent {
			b.WriteString(" +")
			b.WriteString(strconv.FormatFloat(a.Threshold, 'f', 2, 64))
			b.WriteString("% от ")
			b.WriteString(strconv.FormatFloat(a.ReferencePrice, 'f', 2, 64))
		} else {
			b.WriteString(" → ")
			b.WriteString(strconv.FormatFloat(a.Threshold, 'f', 2, 64))
		}
		b.WriteString("\n")
	}
	_, _ = t.Send(ctx, chatID, b.String())
}

// /alert_remove N (нумерация с 1, как в /alerts)
func (t *Telegram) cmdAlertRemove(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		_, _ = t.Send(ctx, chatID, "Формат: /alert_remove N")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		_, _ = t.SendF(ctx, chatID, "Не понял номер %q", args[0])
		return
	}

	list, err := t.store.AlertsFor(ctx, chatID)
	if err != nil {
		logger.Error("telegram: list alerts: %v", err)
		_, _ = t.Send(ctx, chatID, "❌ Не смог прочитать алерты")
		return
	}
	if n > len(list) {
		_, _ = t.SendF(ctx, chatID, "Алерта №%d нет, всего %d", n, len(list))
		return
	}

	removed, err := t.store.RemoveAt(ctx, chatID, n-1)
	if err != nil {
		logger.Error("telegram: remove alert: %v", err)
	}
	_, _ = t.Send(ctx, chatID, alertRemovalReply(removed, err, n))
}

// alertRemovalReply — ответ на /alert_remove по исходу стора.
// removed==nil без ошибки значит, что список успел сократиться между
// /alerts и удалением (цикл движка снимает сработавшие алерты
// конкурентно) — это не сбой. removed!=nil с ошибкой — алерт снят из
// памяти, но снапшот на диск не лёг: говорим как есть, повторный
// /alert_remove с тем же номером снял бы уже ДРУГОЙ алерт.
func alertRemovalReply(removed *models.Alert, err error, n int) string {
	switch {
	case err != nil && removed != nil:
		return fmt.Sprintf("⚠️ Алерт по %s снят, но сохранить не вышло — изменение доедет со следующей записью", removed.Ticker)
	case err != nil:
		return "❌ Не смог снять алерт"
	case removed == nil:
		return fmt.Sprintf("Алерта №%d уже нет — похоже, он только что сработал", n)
	default:
		return fmt.Sprintf("🗑 Снял алерт по %s", removed.Ticker)
	}
}

func (t *Telegram) cmdPrice(ctx context.Context, chatID int64, args []string) {
	ticker := t.cfg.TradeSymbol
	if len(args) > 0 {
		ticker = strings.ToUpper(args[0])
	}
	px, err := t.quotes.CurrentPrice(ctx, ticker)
	if err != nil {
		_, _ = t.SendF(ctx, chatID, "❌ Цена %s недоступна: %v", ticker, err)
		return
	}
	_, _ = t.SendF(ctx, chatID, "💰 %s: %.2f", ticker, px)
}

// /fullpos BUY|SELL QTY [RR] [SIDE_EFFECT]
func (t *Telegram) cmdFullPos(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		_, _ = t.Send(ctx, chatID, "Формат: /fullpos BUY|SELL QTY [RR] [SIDE_EFFECT]")
		return
	}

	side, err := models.ParseSide(args[0])
	if err != nil {
		_, _ = t.SendF(ctx, chatID, "❌ %v", err)
		return
	}
	qty, err := strconv.ParseFloat(args[1], 64)
	if err != nil || qty <= 0 {
		_, _ = t.SendF(ctx, chatID, "Не понял количество %q", args[1])
		return
	}

	rr := 0.0
	if len(args) > 2 {
		rr, err = strconv.ParseFloat(args[2], 64)
		if err != nil || rr <= 0 {
			_, _ = t.SendF(ctx, chatID, "Не понял RR %q", args[2])
			return
		}
	}
	sideEffect := ""
	if len(args) > 3 {
		sideEffect = strings.ToUpper(args[3])
	}

	promptRR := rr
	if promptRR == 0 {
		promptRR = t.cfg.DefaultRR
	}
	prompt := "Открываем " + string(side) + " " + strconv.FormatFloat(qty, 'f', -1, 64) +
		" " + t.opener.Symbol() + ", RR " + strconv.FormatFloat(promptRR, 'f', 2, 64) + "?"

	if !t.Confirm(ctx, chatID, prompt, t.cfg.ConfirmTimeout) {
		return
	}

	res := t.opener.OpenFullPosition(ctx, side, qty, rr, sideEffect)
	switch res.State {
	case models.StateExitPlaced:
		p := res.Plan
		_, _ = t.SendF(ctx, chatID,
			"✅ Позиция открыта и защищена\nВход: %.2f x %s\nTP: %.2f\nSL: %.2f\nRR (факт): %.3f\nOrders: %s / %s",
			p.EntryPrice, strconv.FormatFloat(p.FilledQuantity, 'f', -1, 64),
			p.TakeProfitPrice, p.StopLossPrice, p.RealizedRiskReward,
			res.EntryOrderID, res.ExitOrderID)
	case models.StateExitFailed:
		p := res.Plan
		_, _ = t.SendF(ctx, chatID,
			"⚠️ Вход исполнен, но OCO НЕ встал. Позиция БЕЗ защиты!\nВход: %.2f x %s (order %s)\nПлан был: TP %.2f / SL %.2f\nОшибка: %s",
			p.EntryPrice, strconv.FormatFloat(p.FilledQuantity, 'f', -1, 64),
			res.EntryOrderID, p.TakeProfitPrice, p.StopLossPrice, res.ErrorMessage)
	default:
		_, _ = t.SendF(ctx, chatID, "❌ Вход не прошёл: %s", res.ErrorMessage)
	}
}
