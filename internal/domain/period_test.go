package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviousPeriod(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want Period
	}{
		{
			name: "mid year",
			now:  time.Date(2025, time.April, 5, 6, 0, 0, 0, time.UTC),
			want: Period{Month: 3, Year: 2025},
		},
		{
			name: "january rolls back the year",
			now:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			want: Period{Month: 12, Year: 2024},
		},
		{
			name: "december",
			now:  time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC),
			want: Period{Month: 11, Year: 2024},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PreviousPeriod(tt.now))
		})
	}
}

func TestNewPeriodValidates(t *testing.T) {
	_, err := NewPeriod(13, 2025)
	assert.Error(t, err)

	_, err = NewPeriod(0, 2025)
	assert.Error(t, err)

	p, err := NewPeriod(3, 2025)
	require.NoError(t, err)
	assert.Equal(t, "March", p.MonthName())
	assert.Equal(t, "Mar 2025", p.Label())
	assert.Equal(t, "2025-03", p.String())
}

func TestPeriodBefore(t *testing.T) {
	assert.True(t, Period{Month: 12, Year: 2024}.Before(Period{Month: 1, Year: 2025}))
	assert.True(t, Period{Month: 2, Year: 2025}.Before(Period{Month: 3, Year: 2025}))
	assert.False(t, Period{Month: 3, Year: 2025}.Before(Period{Month: 3, Year: 2025}))
}
