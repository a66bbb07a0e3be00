package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinimumIncrement(t *testing.T) {
	tests := []struct {
		start, want string
	}{
		{"1000", "50"},
		{"100", "5"},
		{"150", "8"}, // 7.5 rounds up
		{"10", "1"},
		{"5", "1"}, // 0.25 rounds up to one unit
		{"0.5", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			requireAmount(t, tt.want, MinimumIncrement(dec(tt.start)))
		})
	}
}

func TestValidateBid(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		highest   string
		proposed  string
		valid     bool
		reason    string
		nextValid string
	}{
		{name: "one_increment_above_start", start: "1000", highest: "1000", proposed: "1050", valid: true},
		{name: "several_increments", start: "1000", highest: "1100", proposed: "1250", valid: true},
		{name: "misaligned_rounds_up", start: "1000", highest: "1000", proposed: "1075", reason: reasonMisaligned, nextValid: "1100"},
		{name: "misaligned_below_one_step", start: "1000", highest: "1000", proposed: "1040", reason: reasonMisaligned, nextValid: "1050"},
		{name: "misaligned_against_lower_highest", start: "1000", highest: "900", proposed: "1040", reason: reasonMisaligned, nextValid: "1050"},
		{name: "equal_to_highest", start: "1000", highest: "1050", proposed: "1050", reason: reasonNotHigher, nextValid: "1100"},
		{name: "below_highest", start: "1000", highest: "1200", proposed: "1100", reason: reasonNotHigher, nextValid: "1250"},
		{name: "within_epsilon", start: "1000", highest: "1000", proposed: "1050.0005", valid: true},
		{name: "just_outside_epsilon", start: "1000", highest: "1000", proposed: "1050.01", reason: reasonMisaligned, nextValid: "1100"},
		{name: "fractional_increment_rounded", start: "150", highest: "150", proposed: "158", valid: true},
		{name: "zero", start: "100", highest: "100", proposed: "0", reason: reasonNonPositive, nextValid: "105"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateBid(dec(tt.start), dec(tt.highest), dec(tt.proposed))
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
			if tt.nextValid != "" {
				requireAmount(t, tt.nextValid, got.NextValid)
			}
		})
	}
}

// Every accepted amount sits on the increment grid and beats the highest bid.
func TestValidateBid_AcceptsExactlyGridAmounts(t *testing.T) {
	start, highest := dec("200"), dec("230")
	inc := MinimumIncrement(start)
	for cents := int64(20000); cents <= 30000; cents += 25 {
		proposed := decFromInt(cents).Shift(-2)
		onGrid := proposed.Sub(start).Mod(inc).IsZero()
		want := proposed.GreaterThan(highest) && onGrid
		assert.Equalf(t, want, ValidateBid(start, highest, proposed).Valid, "proposed %s", proposed)
	}
}

func TestNextValidAmount(t *testing.T) {
	requireAmount(t, "1050", NextValidAmount(dec("1000"), dec("1000")))
	requireAmount(t, "1100", NextValidAmount(dec("1000"), dec("1075")))
	requireAmount(t, "1000", NextValidAmount(dec("1000"), dec("0")))
	// the suggestion is always accepted
	for _, h := range []string{"1000", "1049", "1050", "1333"} {
		next := NextValidAmount(dec("1000"), dec(h))
		assert.True(t, ValidateBid(dec("1000"), dec(h), next).Valid, h)
	}
}
