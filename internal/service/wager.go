// Package service provides business logic implementations.
package service

import (
	"errors"
	"math"
)

// Common errors for wager validation.
var (
	ErrStakeOutOfRange   = errors.New("stake outside allowed range")
	ErrInsufficientCoins = errors.New("player cannot cover the stake")
)

// WagerRules holds the wager policy applied at settlement.
type WagerRules struct {
	CommissionRate float64
	MinStake       int64
	MaxStake       int64
}

// ValidateStake checks a stake against the allowed range.
func (w WagerRules) ValidateStake(stake int64) error {
	if stake < w.MinStake || stake > w.MaxStake {
		return ErrStakeOutOfRange
	}
	return nil
}

// Commission returns the house cut of a pot, rounded down.
func (w WagerRules) Commission(pot int64) int64 {
	return int64(math.Floor(float64(pot) * w.CommissionRate))
}

// DuelPayout returns what the duel winner receives: both stakes minus the
// commission.
func (w WagerRules) DuelPayout(stake int64) int64 {
	pot := 2 * stake
	return pot - w.Commission(pot)
}

// TeamPayout returns what each member of the winning roster receives: the
// combined pot minus commission, split evenly. The integer remainder stays
// with the house.
func (w WagerRules) TeamPayout(stake int64, teamSize int) int64 {
	pot := 2 * int64(teamSize) * stake
	return (pot - w.Commission(pot)) / int64(teamSize)
}
