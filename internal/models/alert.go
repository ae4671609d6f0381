package models

import "time"

type AlertKind string

const (
	AlertPercent AlertKind = "percent"
	AlertPrice   AlertKind = "price"
)

// Alert — пороговый алерт по тикеру, привязан к чату (SubscriptionID).
// ReferencePrice фиксируется в момент создания и дальше не меняется.
type Alert struct {
	Ticker         string    `json:"ticker"`
	Kind           AlertKind `json:"alert_type"`
	Threshold      float64   `json:"value"`
	ReferencePrice float64   `json:"reference_price"`
	CreatedAt      time.Time `json:"created_at"`
	SubscriptionID int64     `json:"channel_id"`
}

// Triggered проверяет условие срабатывания по текущей цене.
// percent — односторонний: только рост от reference (так исторически,
// симметричный даунсайд не проверяем).
// price — направление выводим из положения порога относительно reference.
func (a Alert) Triggered(currentPrice float64) bool {
	switch a.Kind {
	case AlertPercent:
		return a.PercentChange(currentPrice) >= a.Threshold
	case AlertPrice:
		if a.Threshold > a.ReferencePrice {
			return currentPrice >= a.Threshold
		}
		return currentPrice <= a.Threshold
	default:
		return false
	}
}

// PercentChange — изменение от reference в процентах.
func (a Alert) PercentChange(currentPrice float64) float64 {
	return (currentPrice - a.ReferencePrice) / a.ReferencePrice * 100
}

// TargetPrice — целевая цена алерта (для percent считаем от reference).
func (a Alert) TargetPrice() float64 {
	if a.Kind == AlertPercent {
		return a.ReferencePrice * (1 + a.Threshold/100)
	}
	return a.Threshold
}

type AlertDirection string

const (
	DirectionUp   AlertDirection = "increased to"
	DirectionDown AlertDirection = "decreased to"
)

// AlertNotification — событие срабатывания для чат-слоя.
// Рендеринг (embed/текст) остаётся за нотифайером.
type AlertNotification struct {
	Ticker         string
	Kind           AlertKind
	CurrentPrice   float64
	ReferencePrice float64
	Threshold      float64
	// для price-алертов
	Direction AlertDirection
	// для percent-алертов
	PercentChange float64
	Gain          float64
}

// NewAlertNotification собирает событие по сработавшему алерту.
func NewAlertNotification(a Alert, currentPrice float64) AlertNotification {
	n := AlertNotification{
		Ticker:         a.Ticker,
		Kind:           a.Kind,
		CurrentPrice:   currentPrice,
		ReferencePrice: a.ReferencePrice,
		Threshold:      a.Threshold,
	}
	if a.Kind == AlertPercent {
		n.PercentChange = a.PercentChange(currentPrice)
		n.Gain = currentPrice - a.ReferencePrice
		return n
	}
	if a.Threshold > a.ReferencePrice {
		n.Direction = DirectionUp
	} else {
		n.Direction = DirectionDown
	}
	return n
}
