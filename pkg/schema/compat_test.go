package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanWiden(t *testing.T) {
	tests := []struct {
		name string
		from DataType
		to   DataType
		want bool
	}{
		{"identical types", TypeString, TypeString, true},
		{"direct widening", TypeInteger, TypeLong, true},
		{"transitive numeric widening", TypeInteger, TypeDouble, true},
		{"anything numeric to string", TypeInteger, TypeString, true},
		{"boolean to string", TypeBoolean, TypeString, true},
		{"date to dateTime", TypeDate, TypeDateTime, true},
		{"date to string transitively", TypeDate, TypeString, true},
		{"narrowing long to integer", TypeLong, TypeInteger, false},
		{"narrowing string to integer", TypeString, TypeInteger, false},
		{"string to text is not in the table", TypeString, TypeText, false},
		{"string to boolean", TypeString, TypeBoolean, false},
		{"unknown types widen nowhere", TypeUnknown, TypeString, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanWiden(tt.from, tt.to))
		})
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Equal(t, 0, Severity("bogus").Rank())
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityLow, SeverityCritical))
	assert.Equal(t, SeverityHigh, MaxSeverity(SeverityHigh, SeverityMedium))

	// First argument wins ties
	assert.Equal(t, SeverityMedium, MaxSeverity(SeverityMedium, SeverityMedium))
}
