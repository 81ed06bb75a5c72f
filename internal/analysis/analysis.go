// Package analysis provides pure candlestick pattern, level, and indicator
// computation over OHLC series. Nothing in here holds state or does I/O.
package analysis

import (
	"math"

	"optobot/clients/broker"
)

// Trend labels.
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// Pattern is one detected candlestick pattern.
type Pattern struct {
	Name      string  `json:"name"`
	Direction string  `json:"direction"` // call or put bias
	Strength  float64 `json:"strength"`  // 0..1
	BarTime   int64   `json:"bar_time"`
}

// Levels holds detected support and resistance prices.
type Levels struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}

// Indicators holds the computed technical indicator values.
type Indicators struct {
	RSI   float64 `json:"rsi"`
	SMA20 float64 `json:"sma_20"`
	SMA50 float64 `json:"sma_50"`
}

// DetectPatterns scans the last bars for single and two-candle patterns,
// newest first.
func DetectPatterns(candles []broker.Candle) []Pattern {
	var out []Pattern
	for i := len(candles) - 1; i >= 1 && len(out) < 10; i-- {
		cur := candles[i]
		prev := candles[i-1]

		if p, ok := matchEngulfing(prev, cur); ok {
			out = append(out, p)
			continue
		}
		if p, ok := matchHammer(cur); ok {
			out = append(out, p)
			continue
		}
		if p, ok := matchShootingStar(cur); ok {
			out = append(out, p)
			continue
		}
		if p, ok := matchDoji(cur); ok {
			out = append(out, p)
		}
	}
	return out
}

func matchEngulfing(prev, cur broker.Candle) (Pattern, bool) {
	prevBody := math.Abs(prev.Close - prev.Open)
	curBody := math.Abs(cur.Close - cur.Open)
	if prevBody == 0 || curBody < prevBody*1.2 {
		return Pattern{}, false
	}

	if prev.Close < prev.Open && cur.Close > cur.Open &&
		cur.Open <= prev.Close && cur.Close >= prev.Open {
		return Pattern{Name: "bullish_engulfing", Direction: broker.DirectionCall, Strength: 0.8, BarTime: cur.Time}, true
	}
	if prev.Close > prev.Open && cur.Close < cur.Open &&
		cur.Open >= prev.Close && cur.Close <= prev.Open {
		return Pattern{Name: "bearish_engulfing", Direction: broker.DirectionPut, Strength: 0.8, BarTime: cur.Time}, true
	}
	return Pattern{}, false
}

func matchHammer(c broker.Candle) (Pattern, bool) {
	body := math.Abs(c.Close - c.Open)
	if body == 0 {
		return Pattern{}, false
	}
	lowerWick := math.Min(c.Open, c.Close) - c.Low
	upperWick := c.High - math.Max(c.Open, c.Close)
	if lowerWick >= body*2 && upperWick <= body*0.5 {
		return Pattern{Name: "hammer", Direction: broker.DirectionCall, Strength: 0.7, BarTime: c.Time}, true
	}
	return Pattern{}, false
}

func matchShootingStar(c broker.Candle) (Pattern, bool) {
	body := math.Abs(c.Close - c.Open)
	if body == 0 {
		return Pattern{}, false
	}
	lowerWick := math.Min(c.Open, c.Close) - c.Low
	upperWick := c.High - math.Max(c.Open, c.Close)
	if upperWick >= body*2 && lowerWick <= body*0.5 {
		return Pattern{Name: "shooting_star", Direction: broker.DirectionPut, Strength: 0.7, BarTime: c.Time}, true
	}
	return Pattern{}, false
}

func matchDoji(c broker.Candle) (Pattern, bool) {
	span := c.High - c.Low
	if span == 0 {
		return Pattern{}, false
	}
	body := math.Abs(c.Close - c.Open)
	if body/span < 0.1 {
		return Pattern{Name: "doji", Direction: "", Strength: 0.4, BarTime: c.Time}, true
	}
	return Pattern{}, false
}

// DetectLevels finds local swing highs and lows over a 2-bar lookaround and
// returns up to 3 of each, nearest to the last close first.
func DetectLevels(candles []broker.Candle) Levels {
	if len(candles) < 5 {
		return Levels{}
	}

	var support, resistance []float64
	for i := 2; i < len(candles)-2; i++ {
		c := candles[i]
		if c.Low < candles[i-1].Low && c.Low < candles[i-2].Low &&
			c.Low < candles[i+1].Low && c.Low < candles[i+2].Low {
			support = append(support, c.Low)
		}
		if c.High > candles[i-1].High && c.High > candles[i-2].High &&
			c.High > candles[i+1].High && c.High > candles[i+2].High {
			resistance = append(resistance, c.High)
		}
	}

	last := candles[len(candles)-1].Close
	support = nearest(support, last, 3)
	resistance = nearest(resistance, last, 3)
	return Levels{Support: support, Resistance: resistance}
}

func nearest(levels []float64, price float64, n int) []float64 {
	// Selection by distance; the slices here are tiny.
	out := append([]float64(nil), levels...)
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if math.Abs(out[j]-price) < math.Abs(out[i]-price) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ComputeIndicators returns RSI(14) and the 20/50 bar simple moving averages.
func ComputeIndicators(candles []broker.Candle) Indicators {
	return Indicators{
		RSI:   RSI(candles, 14),
		SMA20: SMA(candles, 20),
		SMA50: SMA(candles, 50),
	}
}

// RSI computes the Wilder relative strength index over the given period.
// Returns 50 when there is not enough data.
func RSI(candles []broker.Candle, period int) float64 {
	if len(candles) <= period {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := candles[i].Close - candles[i-1].Close
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(candles); i++ {
		delta := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// SMA computes the simple moving average of the last period closes.
// Returns 0 when there is not enough data.
func SMA(candles []broker.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return 0
	}
	var sum float64
	for _, c := range candles[len(candles)-period:] {
		sum += c.Close
	}
	return sum / float64(period)
}

// Trend classifies the series by comparing the last close against the 20-bar
// average with a small dead band.
func Trend(candles []broker.Candle) string {
	if len(candles) < 20 {
		return TrendNeutral
	}
	sma := SMA(candles, 20)
	if sma == 0 {
		return TrendNeutral
	}
	last := candles[len(candles)-1].Close
	switch {
	case last > sma*1.001:
		return TrendBullish
	case last < sma*0.999:
		return TrendBearish
	default:
		return TrendNeutral
	}
}
