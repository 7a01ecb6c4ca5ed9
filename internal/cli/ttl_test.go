package cli

import (
	"testing"
	"time"
)

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"24h", 24 * time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"60s", 60 * time.Second, false},
		{"1w", 0, true},
		{"d7", 0, true},
		{"", 0, true},
		{"-3d", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTTL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTTL(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTTL(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTTL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
