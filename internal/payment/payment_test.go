package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCardNumber(t *testing.T) {
	got, err := NormalizeCardNumber("4242 4242-4242 4242")
	require.NoError(t, err)
	assert.Equal(t, "4242424242424242", got)

	for _, bad := range []string{"", "4242abcd42424242", "424242424242", "42424242424242424242"} {
		_, err := NormalizeCardNumber(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateExpiryAndCVV(t *testing.T) {
	assert.NoError(t, ValidateExpiry("12/29"))
	assert.NoError(t, ValidateExpiry("01/2030"))
	assert.ErrorIs(t, ValidateExpiry("1/29"), ErrExpiry)
	assert.ErrorIs(t, ValidateExpiry("12/203"), ErrExpiry)
	assert.ErrorIs(t, ValidateExpiry("12-29"), ErrExpiry)

	assert.NoError(t, ValidateCVV("123"))
	assert.NoError(t, ValidateCVV("1234"))
	assert.ErrorIs(t, ValidateCVV("12"), ErrCVV)
	assert.ErrorIs(t, ValidateCVV("12a"), ErrCVV)
	assert.ErrorIs(t, ValidateCVV("12345"), ErrCVV)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		number   string
		approved bool
		brand    string
		reason   string
	}{
		{"4242424242424242", true, "Visa", ""},
		{"5555555555554444", true, "Mastercard", ""},
		{"378282246310005", true, "American Express", ""},
		{"6011111111111117", true, "Discover", ""},
		{"4000000000000002", false, "Visa", "Card declined"},
		{"4000000000009995", false, "Visa", "Insufficient funds"},
		{"4000000000000069", false, "Visa", "Card expired"},
		{"4000000000000127", false, "Visa", "Invalid CVV"},
		{"5105105105105100", true, "Mastercard", ""},
		{"371449635398431", true, "American Express", ""},
		{"6011000990139424", true, "Discover", ""},
		{"3530111333300000", true, "Unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			res := Classify(tt.number)
			assert.Equal(t, tt.approved, res.Approved)
			assert.Equal(t, tt.brand, res.Brand)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, tt.number[len(tt.number)-4:], res.LastFour)
		})
	}
}

func TestSimulatorHonoursContext(t *testing.T) {
	sim := NewSimulator(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Authorize(ctx, Card{Number: "4242424242424242"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatorDelays(t *testing.T) {
	sim := NewSimulator(20 * time.Millisecond)

	start := time.Now()
	res, err := sim.Authorize(context.Background(), Card{Number: "4242424242424242"})
	require.NoError(t, err)

	assert.True(t, res.Approved)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
