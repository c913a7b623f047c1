package wsrpc

import (
	"testing"

	"blockbookclient/internal/core/domain"
)

func TestDeriveSocketURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     string
	}{
		{
			name:     "https becomes wss",
			endpoint: "https://btc1.trezor.io",
			want:     "wss://btc1.trezor.io/websocket",
		},
		{
			name:     "http becomes ws",
			endpoint: "http://localhost:9130",
			want:     "ws://localhost:9130/websocket",
		},
		{
			name:     "bare host defaults to secure scheme",
			endpoint: "btc2.trezor.io",
			want:     "wss://btc2.trezor.io/websocket",
		},
		{
			name:     "wss endpoint kept as is",
			endpoint: "wss://btc1.trezor.io",
			want:     "wss://btc1.trezor.io/websocket",
		},
		{
			name:     "existing socket path not doubled",
			endpoint: "wss://btc1.trezor.io/websocket",
			want:     "wss://btc1.trezor.io/websocket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := domain.NewNode(tt.endpoint)
			if err != nil {
				t.Fatalf("NewNode(%q) unexpected error: %v", tt.endpoint, err)
			}
			if got := deriveSocketURL(node); got != tt.want {
				t.Errorf("deriveSocketURL(%q) = %q, want %q", tt.endpoint, got, tt.want)
			}
		})
	}
}
