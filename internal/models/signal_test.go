package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validLongSignal() *Signal {
	return &Signal{
		ID:         "sig-1",
		Symbol:     "INFY",
		Direction:  DirectionLong,
		EntryPrice: 100,
		StopLoss:   95,
		TakeProfit: 110,
		Quantity:   10,
		RiskReward: 2.0,
		Confidence: 70,
	}
}

func TestSignalValidate_LongOrdering(t *testing.T) {
	sig := validLongSignal()
	assert.NoError(t, sig.Validate())

	sig.StopLoss = 105
	assert.Error(t, sig.Validate())
}

func TestSignalValidate_ShortOrdering(t *testing.T) {
	sig := &Signal{
		ID:         "sig-2",
		Symbol:     "INFY",
		Direction:  DirectionShort,
		EntryPrice: 100,
		StopLoss:   105,
		TakeProfit: 90,
		Quantity:   10,
	}
	assert.NoError(t, sig.Validate())

	sig.TakeProfit = 101
	assert.Error(t, sig.Validate())
}

func TestSignalValidate_MissingFields(t *testing.T) {
	sig := validLongSignal()
	sig.Symbol = ""
	assert.Error(t, sig.Validate())

	sig = validLongSignal()
	sig.Quantity = 0
	assert.Error(t, sig.Validate())

	sig = validLongSignal()
	sig.Direction = "sideways"
	assert.Error(t, sig.Validate())
}

func TestSignalNotional(t *testing.T) {
	sig := validLongSignal()
	assert.Equal(t, 1000.0, sig.Notional())
}
