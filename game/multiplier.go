package game

import (
	"fmt"
	"math"
)

// Multiplier is a payout multiplier in integer hundredths (247 = 2.47x).
// All threshold checks and settlement math run on this fixed-point type so
// results are identical across platforms; float64 appears only at the JSON
// boundary.
type Multiplier int64

const (
	// MinMultiplier is the hard floor for any crash point or cashout.
	MinMultiplier Multiplier = 100
)

// MultiplierFromFloat converts a client-supplied float (e.g. 1.5) to
// fixed-point, rounding to the nearest hundredth.
func MultiplierFromFloat(f float64) Multiplier {
	return Multiplier(math.Round(f * 100))
}

// Float64 returns the display value (2.47 for 247).
func (m Multiplier) Float64() float64 {
	return float64(m) / 100
}

func (m Multiplier) String() string {
	return fmt.Sprintf("%d.%02dx", m/100, m%100)
}

// Payout returns stakeCents * m, truncated to whole cents.
func (m Multiplier) Payout(stakeCents int64) int64 {
	return stakeCents * int64(m) / 100
}
