package game

import (
	"math"
	"time"
)

// DefaultCurveRate controls how fast the display curve climbs; at the
// default a round passes 2x around four seconds in and 10x around ten.
const DefaultCurveRate = 0.5

// LiveMultiplier maps elapsed time to the display multiplier
//
//	1 + (elapsedSeconds * rate)^1.5
//
// floored to hundredths. This is a read-only projection for renderers and
// the round scheduler; it is never authoritative. Settlement always compares
// against the frozen crash point, so the float math here cannot change an
// outcome.
func LiveMultiplier(elapsed time.Duration, rate float64) Multiplier {
	if elapsed <= 0 {
		return MinMultiplier
	}
	if rate <= 0 {
		rate = DefaultCurveRate
	}

	t := elapsed.Seconds() * rate
	m := Multiplier(math.Floor((1 + math.Pow(t, 1.5)) * 100))
	if m < MinMultiplier {
		m = MinMultiplier
	}
	return m
}
