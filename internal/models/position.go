package models

type PositionState string

// Автомат открытия позиции:
// Idle → EntrySubmitted → {EntryFailed | EntryFilled} →
// ExitSubmitted → {ExitFailed (позиция открыта БЕЗ защиты) | ExitPlaced}
const (
	StateEntryFailed PositionState = "ENTRY_FAILED"
	StateExitFailed  PositionState = "EXIT_FAILED"
	StateExitPlaced  PositionState = "EXIT_PLACED"
)

// PositionPlan — выход TP/SL-расчёта по факту исполнения входа.
type PositionPlan struct {
	EntryPrice     float64
	FilledQuantity float64

	TakeProfitPrice float64
	StopLossPrice   float64

	// Запрошенный RR и фактический (после комиссий) — расходятся при
	// дрейфе формулы/конфига, это повод для warning, не для отказа.
	TheoreticalRiskReward float64
	RealizedRiskReward    float64
}

// PositionResult — структурный результат open-full-position.
// Частичный успех (вход есть, OCO нет) обязан быть виден вызывающему
// отдельно от полного провала.
type PositionResult struct {
	State PositionState
	Plan  *PositionPlan

	EntryOrderID string
	ExitOrderID  string

	ErrorMessage string
}

// Opened — вход исполнен (даже если защита не встала).
func (r *PositionResult) Opened() bool {
	return r != nil && r.State != StateEntryFailed
}

// Protected — и вход, и OCO-выход на месте.
func (r *PositionResult) Protected() bool {
	return r != nil && r.State == StateExitPlaced
}
