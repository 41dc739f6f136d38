package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInferWindow(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		planName string
		amount   int64
		expected time.Time
	}{
		{"monthly plan", "Monthly Subscription", 449, now.AddDate(0, 1, 0)},
		{"yearly plan", "Yearly Subscription", 4308, now.AddDate(1, 0, 0)},
		{"year keyword", "One Year Access", 1000, now.AddDate(1, 0, 0)},
		{"premium monthly amount", "Premium", 449, now.AddDate(0, 1, 0)},
		{"premium yearly amount", "Premium", 4308, now.AddDate(1, 0, 0)},
		{"premium unknown amount", "Premium", 30000, now.AddDate(1, 0, 0)},
		{"ai fundamentals course", "AI Fundamentals", 2000, now.AddDate(1, 0, 0)},
		{"genai course", "GenAI Bootcamp", 2000, now.AddDate(1, 0, 0)},
		{"unknown plan defaults to a year", "Mystery Plan", 123, now.AddDate(1, 0, 0)},
		{"case insensitive", "PREMIUM MONTHLY", 449, now.AddDate(0, 1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := InferWindow(tt.planName, tt.amount, now)
			assert.Equal(t, now, window.StartDate)
			assert.Equal(t, tt.expected, window.ExpiryDate)
		})
	}
}

func TestInferWindowMonthlyBeatsPremium(t *testing.T) {
	now := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	// Name rules take precedence over amount rules.
	window := InferWindow("Premium Monthly", 4308, now)
	assert.Equal(t, now.AddDate(0, 1, 0), window.ExpiryDate)
}

func TestSyncOutcomeSucceeded(t *testing.T) {
	assert.True(t, SyncOutcome{StepsCompleted: []string{"a", "b"}}.Succeeded())
	assert.False(t, SyncOutcome{StepsCompleted: []string{"a"}, StepsFailed: []string{"b"}}.Succeeded())
	assert.False(t, SyncOutcome{StepsNotProcessed: []string{"a"}}.Succeeded())
}

func TestSyncOutcomePartial(t *testing.T) {
	assert.True(t, SyncOutcome{StepsCompleted: []string{"a"}, StepsFailed: []string{"b"}}.Partial())
	assert.False(t, SyncOutcome{StepsFailed: []string{"a"}}.Partial())
	assert.False(t, SyncOutcome{StepsCompleted: []string{"a"}}.Partial())
}
