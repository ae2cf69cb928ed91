// Package casino scores the points minigames and settles their outcomes.
//
// Scoring is pure: callers supply the random draw (coin result, wheel
// angle, race result) so outcomes can be replayed and tested.
package casino

import "math"

// wheelSectors holds the multiplier of each 45° sector, clockwise from 0°.
var wheelSectors = [8]float64{5, 1, 2, 0.5, 0, 2, 1, 0.5}

// WheelMultipliers returns the distinct multipliers the wheel can land on.
func WheelMultipliers() []float64 {
	return []float64{0, 0.5, 1, 2, 5}
}

// CoinFlip doubles the stake on a win and halves it (rounding down) on a loss.
func CoinFlip(stake int64, won bool) int64 {
	if won {
		return stake * 2
	}
	return stake / 2
}

// NormalizeAngle maps any angle in degrees into [0, 360).
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// WheelMultiplier returns the multiplier of the sector angle lands in.
// Sector boundaries belong to the sector they open. NaN and infinities land
// on 0°.
func WheelMultiplier(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		angle = 0
	}
	sector := int(NormalizeAngle(angle) / 45)
	if sector > 7 {
		sector = 7
	}
	return wheelSectors[sector]
}

// Wheel returns stake × the sector multiplier, truncated.
func Wheel(stake int64, angle float64) int64 {
	return int64(float64(stake) * WheelMultiplier(angle))
}

// HorseRace triples the stake on a correct pick and returns a third of it
// (rounding down) otherwise.
func HorseRace(stake int64, correct bool) int64 {
	if correct {
		return stake * 3
	}
	return stake / 3
}
