package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaybackYears(t *testing.T) {
	rent := func(v float64) *float64 { return &v }

	tests := []struct {
		name      string
		price     int64
		predicted *float64
		want      *float64
	}{
		{name: "rounds half up to one decimal", price: 4500000, predicted: rent(20000), want: rent(18.8)},
		{name: "exact", price: 2400000, predicted: rent(10000), want: rent(20)},
		{name: "no prediction", price: 4500000, predicted: nil, want: nil},
		{name: "zero prediction", price: 4500000, predicted: rent(0), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SellListing{Listing: Listing{Price: tt.price}, PredictedRentPrice: tt.predicted}
			got := s.PaybackYears()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestTrimHistory(t *testing.T) {
	var turns []Turn
	for i := 0; i < 25; i++ {
		turns = append(turns, Turn{Role: RoleUser, Text: string(rune('a' + i))})
	}

	trimmed := TrimHistory(turns, DefaultMaxTurns)
	require.Len(t, trimmed, 20)
	assert.Equal(t, turns[5:], trimmed)

	short := turns[:3]
	assert.Equal(t, short, TrimHistory(short, DefaultMaxTurns))
}

func TestIntentTypeValid(t *testing.T) {
	for _, it := range IntentTypes {
		assert.True(t, it.Valid(), it)
	}
	assert.False(t, IntentType("").Valid())
	assert.False(t, IntentType("RENT").Valid())
	assert.Len(t, IntentTypes, 10)
}

func TestListingDefaults(t *testing.T) {
	empty := ""
	l := Listing{District: &empty}
	assert.Equal(t, "Prague", l.DistrictName())
	assert.Equal(t, "N/A", l.DispositionName())
}
