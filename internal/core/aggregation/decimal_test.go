package aggregation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name  string
		part  int
		total int
		want  float64
	}{
		{name: "empty bucket", part: 0, total: 0, want: 0},
		{name: "all attended", part: 12, total: 12, want: 100},
		{name: "none attended", part: 0, total: 7, want: 0},
		{name: "exact quarter", part: 75, total: 100, want: 75},
		{name: "repeating decimal", part: 1, total: 3, want: 33.33},
		{name: "rounds half away from zero", part: 1, total: 8, want: 12.5},
		{name: "rounds up at third decimal", part: 2, total: 3, want: 66.67},
		{name: "tiny share", part: 1, total: 30000, want: 0},
		{name: "half of a hundredth", part: 1, total: 2000, want: 0.05},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Percent(tc.part, tc.total))
		})
	}
}

func TestAverage(t *testing.T) {
	require.Equal(t, 0.0, Average(decimal.Zero, 0))
	require.Equal(t, 5.5, Average(decimal.NewFromInt(11), 2))
	require.Equal(t, 3.33, Average(decimal.NewFromInt(10), 3))
	require.Equal(t, 6.67, Average(decimal.NewFromInt(20), 3))
}
