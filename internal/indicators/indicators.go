// Package indicators computes classical technical indicators over a
// caller-supplied price series. Every function is pure and stateless; the
// engine owns the series, this package only does arithmetic.
package indicators

import "math"

// SMA returns the simple moving average of the last period values.
// ok is false when the series is shorter than period.
func SMA(closes []float64, period int) (sma float64, ok bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	var sum float64
	for _, v := range closes[len(closes)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMA returns the exponential moving average seeded with an SMA of the first
// period values.
func EMA(closes []float64, period int) (ema float64, ok bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	seed, _ := SMA(closes[:period], period)
	k := 2.0 / float64(period+1)
	ema = seed
	for _, v := range closes[period:] {
		ema = v*k + ema*(1-k)
	}
	return ema, true
}

// RSI returns the relative strength index over period using Wilder smoothing.
func RSI(closes []float64, period int) (rsi float64, ok bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			avgGain += diff
		} else {
			avgLoss -= diff
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// MACD returns the 12/26 EMA difference and its 9-period signal line.
// The signal line is approximated over the tail of the series.
func MACD(closes []float64) (macd, signal float64, ok bool) {
	const (
		fast   = 12
		slow   = 26
		smooth = 9
	)
	if len(closes) < slow+smooth {
		return 0, 0, false
	}
	// Build the MACD series for the last smooth points.
	series := make([]float64, 0, smooth)
	for i := len(closes) - smooth; i <= len(closes); i++ {
		f, okF := EMA(closes[:i], fast)
		s, okS := EMA(closes[:i], slow)
		if !okF || !okS {
			return 0, 0, false
		}
		series = append(series, f-s)
	}
	macd = series[len(series)-1]
	sig, _ := EMA(series, len(series)/2+1)
	return macd, sig, true
}

// Bollinger returns the period-SMA band at k standard deviations.
func Bollinger(closes []float64, period int, k float64) (upper, middle, lower float64, ok bool) {
	middle, ok = SMA(closes, period)
	if !ok {
		return 0, 0, 0, false
	}
	var variance float64
	for _, v := range closes[len(closes)-period:] {
		d := v - middle
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))
	return middle + k*sd, middle, middle - k*sd, true
}

// Stochastic returns %K over period: where the latest close sits within the
// period's range, 0..100.
func Stochastic(closes []float64, period int) (k float64, ok bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	window := closes[len(closes)-period:]
	lo, hi := window[0], window[0]
	for _, v := range window {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return 50, true
	}
	return (window[len(window)-1] - lo) / (hi - lo) * 100, true
}

// Signal folds RSI and MACD into a coarse buy/sell/hold call.
func Signal(rsi, macd, macdSignal float64) string {
	switch {
	case rsi < 30 && macd > macdSignal:
		return "buy"
	case rsi > 70 && macd < macdSignal:
		return "sell"
	default:
		return "hold"
	}
}
