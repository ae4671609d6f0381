package trading

import "math"

// ExitConfig — параметры формулы выхода. Не зашиты в код: risk и
// комиссии приходят из конфига.
type ExitConfig struct {
	Risk           float64 // доля от цены входа, напр. 0.01
	EntryFee       float64 // f0 — комиссия маркет-входа
	ExitFee        float64 // ft — комиссия OCO-выхода
	PricePrecision int     // знаков после запятой у цены инструмента
}

type exitLevels struct {
	tp float64
	sl float64

	// фактический RR по спроектированным уровням, с комиссиями и без
	realizedRR float64
	noFeesRR   float64
}

// calcExitLevels решает уровни, на которых чистый результат позиции
// (за вычетом комиссий обеих ног) равен risk*rr для TP и risk для SL:
//
//	tp = (risk*px*rr + px*(f0+d)) / (d - ft)
//	sl = (risk*px    - px*(f0+d)) / (ft - d)
//
// d — знак направления (+1 лонг / -1 шорт), д.б. ненулевой на входе.
func calcExitLevels(cfg ExitConfig, direction int, executedPrice, executedQty, rr float64) exitLevels {
	d := float64(direction)
	f0, ft, risk := cfg.EntryFee, cfg.ExitFee, cfg.Risk

	tp := (risk*executedPrice*rr + executedPrice*(f0+d)) / (d - ft)
	sl := (risk*executedPrice - executedPrice*(f0+d)) / (ft - d)

	tp = roundPrice(tp, cfg.PricePrecision)
	sl = roundPrice(sl, cfg.PricePrecision)

	gained := d*executedQty*(tp-executedPrice) - executedQty*executedPrice*f0 - executedQty*tp*ft
	lost := d*executedQty*(sl-executedPrice) - executedQty*executedPrice*f0 - executedQty*sl*ft

	out := exitLevels{tp: tp, sl: sl}
	if lost != 0 {
		out.realizedRR = round3(-gained / lost)
	}
	if executedPrice != sl {
		out.noFeesRR = round3((tp - executedPrice) / (executedPrice - sl))
	}
	return out
}

func roundPrice(px float64, precision int) float64 {
	pow := math.Pow10(precision)
	return math.Round(px*pow) / pow
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
