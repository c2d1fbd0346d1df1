package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/nugget/cogflow/cog"
	"github.com/nugget/cogflow/internal/config"
)

func TestToPayload(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"bytes pass through", []byte("raw"), "raw"},
		{"string passes through", "hello", "hello"},
		{"other falls back to %v", 42, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toPayload(tt.in)
			if err != nil {
				t.Fatalf("toPayload() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("toPayload(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func newTestEndpoint() *cog.IoEndpoint {
	return cog.NewIoEndpoint(cog.NewChannel(cog.Fixed(1)), cog.NewChannel(cog.Fixed(1)))
}

func TestNewMQTT_DefaultsLogger(t *testing.T) {
	m := NewMQTT(config.MQTTConfig{Broker: "mqtt://localhost:1883"}, newTestEndpoint(), nil)
	if m.logger == nil {
		t.Error("NewMQTT with nil logger should default to slog.Default()")
	}
}

func TestMQTT_StartRejectsInvalidBrokerURL(t *testing.T) {
	m := NewMQTT(config.MQTTConfig{Broker: "://not-a-url"}, newTestEndpoint(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Start(ctx); err == nil {
		t.Fatal("Start() with a malformed broker URL should return an error")
	}
}
