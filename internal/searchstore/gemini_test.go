package searchstore

import (
	"context"
	"testing"
	"time"
)

func TestNextPollDelay(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{500 * time.Millisecond, time.Second},
		{time.Second, 2 * time.Second},
		{2 * time.Second, 4 * time.Second},
		{4 * time.Second, 4 * time.Second}, // capped
		{10 * time.Second, 4 * time.Second},
	}
	for _, tt := range tests {
		if got := nextPollDelay(tt.in); got != tt.want {
			t.Errorf("nextPollDelay(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", "gemini-2.5-flash", 0); err == nil {
		t.Error("expected error for empty API key, got nil")
	}
}
