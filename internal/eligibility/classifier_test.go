package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		tenth, twelfth float64
		want           string
	}{
		{"both top", 85, 90, "Tier A"},
		{"top boundary", 80, 80, "Tier A"},
		{"perfect", 100, 100, "Tier A"},
		{"mid band", 70, 72, "Tier B"},
		{"mid lower edge", 65, 65, "Tier B"},
		{"mid upper edge", 75, 75, "Tier B"},
		{"entry band", 55, 60, "Tier C"},
		{"entry lower edge", 50, 50, "Tier C"},
		{"entry with one 65", 65, 60, "Tier C"},
		{"gap between bands", 78, 78, "Not Eligible"},
		{"mixed low high", 40, 90, "Not Eligible"},
		{"mixed high low", 100, 40, "Not Eligible"},
		{"one in mid one in top", 70, 85, "Not Eligible"},
		{"zero", 0, 0, "Not Eligible"},
		{"just under entry", 49.9, 60, "Not Eligible"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.tenth, tt.twelfth).Label())
		})
	}
}

func TestClassify_Bands(t *testing.T) {
	for a := 80.0; a <= 100; a += 2.5 {
		for b := 80.0; b <= 100; b += 2.5 {
			assert.IsType(t, TierA{}, Classify(a, b), "%v/%v", a, b)
		}
	}
	for a := 65.0; a <= 75; a += 0.5 {
		for b := 65.0; b <= 75; b += 0.5 {
			assert.IsType(t, TierB{}, Classify(a, b), "%v/%v", a, b)
		}
	}
	for a := 50.0; a <= 65; a += 0.5 {
		for b := 50.0; b <= 65; b += 0.5 {
			if a >= 65 && b >= 65 {
				continue
			}
			assert.IsType(t, TierC{}, Classify(a, b), "%v/%v", a, b)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	first := Classify(70, 72)
	second := Classify(70, 72)
	assert.Equal(t, first, second)
	assert.Equal(t, first.Display(), second.Display())
}

func TestOutcomeDisplay(t *testing.T) {
	for _, o := range All() {
		d := o.Display()
		assert.NotEmpty(t, d.Title, o.Label())
		assert.NotEmpty(t, d.Position, o.Label())
		assert.Len(t, d.Stamp, 3, o.Label())
		assert.NotEmpty(t, o.Message(), o.Label())
	}

	assert.False(t, NotEligible{}.Eligible())
	assert.Equal(t, TierNone, NotEligible{}.Tier())
	assert.True(t, TierA{}.Tier() > TierB{}.Tier())
	assert.True(t, TierB{}.Tier() > TierC{}.Tier())
}

func TestByLabel(t *testing.T) {
	o, ok := ByLabel(" tier b ")
	require.True(t, ok)
	assert.IsType(t, TierB{}, o)

	_, ok = ByLabel("Tier D")
	assert.False(t, ok)
}
