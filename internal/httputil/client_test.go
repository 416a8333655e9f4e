package httputil

import (
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, DefaultTimeout},
		{-time.Second, DefaultTimeout},
		{5 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := NewClient(tt.in).Timeout; got != tt.want {
			t.Errorf("NewClient(%s).Timeout = %s, want %s", tt.in, got, tt.want)
		}
	}
}
