package prerender

import (
	"testing"
	"time"
)

func TestRequest_Elapsed(t *testing.T) {
	req := &Request{}
	if got := req.Elapsed(); got != 0 {
		t.Errorf("Elapsed() with zero ReceivedAt = %v, want 0", got)
	}

	req.ReceivedAt = time.Now().Add(-2 * time.Second)
	if got := req.Elapsed(); got < 2*time.Second || got > 3*time.Second {
		t.Errorf("Elapsed() = %v, want about 2s", got)
	}
}

func TestRequest_IsRead(t *testing.T) {
	tests := []struct {
		method string
		want   bool
	}{
		{"GET", true},
		{"POST", false},
		{"HEAD", false},
		{"get", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req := &Request{Method: tt.method}
			if got := req.IsRead(); got != tt.want {
				t.Errorf("IsRead() = %v, want %v", got, tt.want)
			}
		})
	}
}
