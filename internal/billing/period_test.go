package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/billing-engine/internal/domain/entity"
)

func TestDecompose_Monthly(t *testing.T) {
	windows, err := Decompose(Date(2024, 1, 15), Date(2024, 3, 10), entity.IntervalMonthly)
	require.NoError(t, err)

	expected := []DateRange{
		{From: Date(2024, 1, 15), To: Date(2024, 1, 31)},
		{From: Date(2024, 2, 1), To: Date(2024, 2, 29)},
		{From: Date(2024, 3, 1), To: Date(2024, 3, 10)},
	}
	assert.Equal(t, expected, windows)
}

func TestDecompose_Quarterly(t *testing.T) {
	windows, err := Decompose(Date(2024, 2, 15), Date(2024, 8, 10), entity.IntervalQuarterly)
	require.NoError(t, err)

	expected := []DateRange{
		{From: Date(2024, 2, 15), To: Date(2024, 3, 31)},
		{From: Date(2024, 4, 1), To: Date(2024, 6, 30)},
		{From: Date(2024, 7, 1), To: Date(2024, 8, 10)},
	}
	assert.Equal(t, expected, windows)
}

func TestDecompose_SingleDay(t *testing.T) {
	windows, err := Decompose(Date(2024, 5, 7), Date(2024, 5, 7), entity.IntervalMonthly)
	require.NoError(t, err)
	assert.Equal(t, []DateRange{{From: Date(2024, 5, 7), To: Date(2024, 5, 7)}}, windows)
}

func TestDecompose_StartAfterEnd(t *testing.T) {
	windows, err := Decompose(Date(2024, 6, 1), Date(2024, 5, 1), entity.IntervalMonthly)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestDecompose_SingleIntervalRejected(t *testing.T) {
	_, err := Decompose(Date(2024, 1, 1), Date(2024, 12, 31), entity.IntervalSingle)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestDecompose_CrossYearQuarterly(t *testing.T) {
	windows, err := Decompose(Date(2023, 11, 20), Date(2024, 2, 5), entity.IntervalQuarterly)
	require.NoError(t, err)

	expected := []DateRange{
		{From: Date(2023, 11, 20), To: Date(2023, 12, 31)},
		{From: Date(2024, 1, 1), To: Date(2024, 2, 5)},
	}
	assert.Equal(t, expected, windows)
}

func TestDifference(t *testing.T) {
	tests := []struct {
		name     string
		a        DateRange
		b        DateRange
		expected []DateRange
	}{
		{
			name:     "no overlap keeps a whole",
			a:        DateRange{From: Date(2024, 1, 1), To: Date(2024, 1, 31)},
			b:        DateRange{From: Date(2024, 3, 1), To: Date(2024, 3, 31)},
			expected: []DateRange{{From: Date(2024, 1, 1), To: Date(2024, 1, 31)}},
		},
		{
			name:     "b covers a entirely",
			a:        DateRange{From: Date(2024, 2, 1), To: Date(2024, 2, 29)},
			b:        DateRange{From: Date(2024, 1, 1), To: Date(2024, 3, 31)},
			expected: nil,
		},
		{
			name: "b cuts the middle",
			a:    DateRange{From: Date(2024, 1, 1), To: Date(2024, 3, 31)},
			b:    DateRange{From: Date(2024, 2, 1), To: Date(2024, 2, 29)},
			expected: []DateRange{
				{From: Date(2024, 1, 1), To: Date(2024, 1, 31)},
				{From: Date(2024, 3, 1), To: Date(2024, 3, 31)},
			},
		},
		{
			name:     "b cuts the head",
			a:        DateRange{From: Date(2024, 1, 1), To: Date(2024, 3, 31)},
			b:        DateRange{From: Date(2023, 12, 1), To: Date(2024, 1, 31)},
			expected: []DateRange{{From: Date(2024, 2, 1), To: Date(2024, 3, 31)}},
		},
		{
			name:     "b cuts the tail",
			a:        DateRange{From: Date(2024, 1, 1), To: Date(2024, 3, 31)},
			b:        DateRange{From: Date(2024, 3, 1), To: Date(2024, 4, 30)},
			expected: []DateRange{{From: Date(2024, 1, 1), To: Date(2024, 2, 29)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Difference(tt.a, tt.b))
		})
	}
}

func TestSubtractAll(t *testing.T) {
	windows := []DateRange{
		{From: Date(2024, 1, 1), To: Date(2024, 3, 31)},
		{From: Date(2024, 4, 1), To: Date(2024, 6, 30)},
	}
	claimed := []DateRange{
		{From: Date(2024, 1, 1), To: Date(2024, 3, 31)},
		{From: Date(2024, 4, 1), To: Date(2024, 4, 15)},
	}

	remaining := SubtractAll(windows, claimed)
	assert.Equal(t, []DateRange{{From: Date(2024, 4, 16), To: Date(2024, 6, 30)}}, remaining)
}

func TestDateRange_Overlaps(t *testing.T) {
	a := DateRange{From: Date(2024, 1, 1), To: Date(2024, 1, 31)}

	assert.True(t, a.Overlaps(DateRange{From: Date(2024, 1, 31), To: Date(2024, 2, 15)}))
	assert.False(t, a.Overlaps(DateRange{From: Date(2024, 2, 1), To: Date(2024, 2, 15)}))
}
