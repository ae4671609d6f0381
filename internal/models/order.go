package models

import (
	"fmt"
	"strings"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Direction мапит сторону в знак: +1 лонг, -1 шорт, 0 — невалидная сторона.
func (s Side) Direction() int {
	switch s {
	case SideBuy:
		return 1
	case SideSell:
		return -1
	default:
		return 0
	}
}

// Opposite — сторона закрывающего ордера.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func ParseSide(raw string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown side %q", raw)
	}
}

type OrderKind string

const (
	OrderMarket    OrderKind = "MARKET"
	OrderLimit     OrderKind = "LIMIT"
	OrderStopLimit OrderKind = "STOP_LOSS_LIMIT"
	// OCO = лимитная TP-нога + стоповая SL-нога, биржа сама снимает вторую
	OrderOCO OrderKind = "OCO"
)

// OrderRequest — нормализованная заявка. Поля бирж (isIsolated,
// sideEffectType) живут здесь, чтобы ядро не знало форматов конкретного API.
type OrderRequest struct {
	Symbol string
	Side   Side
	Kind   OrderKind

	// Amount — количество базового актива; при UseFunds — сумма в квоте.
	Amount   float64
	UseFunds bool

	Price     float64 // лимитная цена (для OCO — TP-нога)
	StopPrice float64 // триггер стопа (для OCO — SL-нога)

	IsIsolated bool
	SideEffect string // NO_SIDE_EFFECT | MARGIN_BUY | AUTO_REPAY | AUTO_BORROW_REPAY
}

// Validate отсекает заведомо битые заявки до любого сетевого вызова.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if r.Side.Direction() == 0 {
		return fmt.Errorf("unknown side %q", string(r.Side))
	}
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if strings.Contains(string(r.Kind), "LIMIT") && r.Price <= 0 {
		return fmt.Errorf("price is required for %s orders", r.Kind)
	}
	switch r.Kind {
	case OrderStopLimit, OrderOCO:
		if r.StopPrice <= 0 {
			return fmt.Errorf("stop price is required for %s orders", r.Kind)
		}
	}
	if r.Kind == OrderOCO && r.Price <= 0 {
		return fmt.Errorf("limit price is required for OCO orders")
	}
	return nil
}

// OrderResult — нормализованный ответ шлюза. Отказ биржи — это НЕ ошибка
// транспорта: Success=false + ErrorMessage, чтобы вызывающий мог отличить
// "вход не прошёл" от "вход прошёл, выход не прошёл".
type OrderResult struct {
	Success      bool
	OrderID      string
	FilledQty    float64
	AvgFillPrice float64
	ErrorMessage string

	// сырой ответ биржи, для логов/отладки
	Raw []byte
}

func (r *OrderResult) IsSuccess() bool {
	return r != nil && r.Success && r.OrderID != ""
}

// Rejected — конструктор отказа с человекочитаемым сообщением.
func Rejected(format string, args ...any) *OrderResult {
	return &OrderResult{Success: false, ErrorMessage: fmt.Sprintf(format, args...)}
}
