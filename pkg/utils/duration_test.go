package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "Past due", FormatDuration(-time.Second))
	assert.Equal(t, "5 minutes", FormatDuration(5*time.Minute))
	assert.Equal(t, "2 hours, 30 minutes", FormatDuration(150*time.Minute))
	assert.Equal(t, "1 days, 2 hours", FormatDuration(26*time.Hour))
}

func TestHumanTimeDiff(t *testing.T) {
	base := time.Unix(1_000_000, 0)

	tests := []struct {
		name  string
		delta time.Duration
		want  string
	}{
		{name: "zero rounds up to a minute", delta: 0, want: "1 min"},
		{name: "seconds", delta: 20 * time.Second, want: "1 min"},
		{name: "minutes", delta: 5 * time.Minute, want: "5 mins"},
		{name: "hour boundary", delta: time.Hour, want: "1 hour"},
		{name: "hours", delta: 5*time.Hour + 20*time.Minute, want: "5 hours"},
		{name: "days", delta: 72 * time.Hour, want: "3 days"},
		{name: "past is symmetric", delta: -5 * time.Minute, want: "5 mins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanTimeDiff(base, base.Add(tt.delta)))
		})
	}
}

func TestFormatInterval(t *testing.T) {
	assert.Equal(t, "3600", FormatInterval(3600, time.Second))
	assert.Equal(t, "60", FormatInterval(3600, time.Minute))
	assert.Equal(t, "1", FormatInterval(3600, time.Hour))
	assert.Equal(t, "1.5", FormatInterval(90, time.Minute))
	assert.Equal(t, "12", FormatInterval(43200, time.Hour))
}
