package trading

import (
	"context"
	"fmt"

	"github.com/belgrano9/discord-bot-sub000/internal/models"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/config"
	"github.com/belgrano9/discord-bot-sub000/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// OrderGateway — нормализованный шлюз к бирже. Отказы приходят как
// Success=false, не как ошибки: нам важно различать "вход не прошёл"
// и "вход прошёл, выход не прошёл".
type OrderGateway interface {
	SubmitMarketOrder(ctx context.Context, req models.OrderRequest) *models.OrderResult
	SubmitOCOOrder(ctx context.Context, req models.OrderRequest) *models.OrderResult
}

// Opener открывает позицию маркет-ордером и сразу накрывает её
// OCO-бракетом, посчитанным от фактической цены исполнения.
type Opener struct {
	gw        OrderGateway
	symbol    string
	exit      ExitConfig
	defaultRR float64
}

func NewOpener(cfg *config.Config, gw OrderGateway) *Opener {
	return &Opener{
		gw:     gw,
		symbol: cfg.TradeSymbol,
		exit: ExitConfig{
			Risk:           cfg.Risk,
			EntryFee:       cfg.EntryFee,
			ExitFee:        cfg.ExitFee,
			PricePrecision: cfg.PricePrecision,
		},
		defaultRR: cfg.DefaultRR,
	}
}

// OpenFullPosition: маркет-вход → TP/SL от факта исполнения → OCO-выход
// противоположной стороной размером ровно в исполненное количество.
//
// Два сабмита не атомарны: между входом и выходом отката нет. Если
// OCO не встал — позиция открыта БЕЗ защиты, результат обязан это
// показать отдельным состоянием, а не общим "не получилось".
func (o *Opener) OpenFullPosition(
	ctx context.Context,
	side models.Side,
	quantity float64,
	rr float64,
	sideEffect string,
) *models.PositionResult {
	span := opentracing.StartSpan("trading.open_full_position")
	defer span.Finish()

	if rr <= 0 {
		rr = o.defaultRR
	}

	direction := side.Direction()
	if direction == 0 {
		// дальше формула делит на direction — дальше идти нельзя
		return &models.PositionResult{
			State:        models.StateEntryFailed,
			ErrorMessage: fmt.Sprintf("unknown side %q", string(side)),
		}
	}

	logger.Info("trading: opening %s %s qty=%v rr=%v", o.symbol, side, quantity, rr)

	entry := o.gw.SubmitMarketOrder(ctx, models.OrderRequest{
		Symbol:     o.symbol,
		Side:       side,
		Kind:       models.OrderMarket,
		Amount:     quantity,
		IsIsolated: true,
		SideEffect: sideEffect,
	})
	if !entry.IsSuccess() {
		logger.Error("trading: entry rejected: %s", entry.ErrorMessage)
		return &models.PositionResult{
			State:        models.StateEntryFailed,
			ErrorMessage: entry.ErrorMessage,
		}
	}
	if entry.FilledQty <= 0 || entry.AvgFillPrice <= 0 {
		// без филлов делить нечего и нечего защищать
		return &models.PositionResult{
			State:        models.StateEntryFailed,
			EntryOrderID: entry.OrderID,
			ErrorMessage: "no fill information in market order response",
		}
	}

	executedQty := entry.FilledQty
	executedPrice := entry.AvgFillPrice

	levels := calcExitLevels(o.exit, direction, executedPrice, executedQty, rr)
	if levels.realizedRR != rr {
		// дрейф формулы/конфига: предупреждаем, но ордер ставим
		logger.Warn("trading: real RR %.3f != requested %.3f (no fees: %.3f), check formula/config",
			levels.realizedRR, rr, levels.noFeesRR)
	}
	logger.Info("trading: %s entry=%.8f qty=%.8f tp=%.2f sl=%.2f",
		o.symbol, executedPrice, executedQty, levels.tp, levels.sl)

	plan := &models.PositionPlan{
		EntryPrice:            executedPrice,
		FilledQuantity:        executedQty,
		TakeProfitPrice:       levels.tp,
		StopLossPrice:         levels.sl,
		TheoreticalRiskReward: rr,
		RealizedRiskReward:    levels.realizedRR,
	}

	exit := o.gw.SubmitOCOOrder(ctx, models.OrderRequest{
		Symbol:     o.symbol,
		Side:       side.Opposite(),
		Kind:       models.OrderOCO,
		Amount:     executedQty,
		Price:      levels.tp,
		StopPrice:  levels.sl,
		IsIsolated: true,
		SideEffect: sideEffect,
	})
	if !exit.IsSuccess() {
		logger.Error("trading: entry %s filled but OCO rejected: %s", entry.OrderID, exit.ErrorMessage)
		return &models.PositionResult{
			State:        models.StateExitFailed,
			Plan:         plan,
			EntryOrderID: entry.OrderID,
			ErrorMessage: exit.ErrorMessage,
		}
	}

	return &models.PositionResult{
		State:        models.StateExitPlaced,
		Plan:         plan,
		EntryOrderID: entry.OrderID,
		ExitOrderID:  exit.OrderID,
	}
}

// Symbol — торгуемый инструмент этого опенера.
func (o *Opener) Symbol() string { return o.symbol }
