package webhook

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second},
		{10, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt); got != tt.want {
			t.Fatalf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
