// Package bridge adapts cogflow's channel contract to external
// modalities: MQTT, a browser-facing WebSocket tap, and a markdown
// render transition. These sit outside the core (spec.md's "external
// modality adapters") and interact with a cog purely through the
// channel contract — Send to feed input, Subscribe/Receive to consume
// output.
package bridge

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/nugget/cogflow/cog"
	"github.com/nugget/cogflow/internal/config"
)

// MQTT republishes every value received from a cogflow port to an
// output topic, and forwards every inbound message on an input topic to
// the port's input. Messages are forwarded as opaque byte payloads —
// cogflow messages have no typed schema (spec.md §3), so this adapter
// neither parses nor validates them; interpretation is the transition
// function's job. Connection lifecycle (backoff, OnConnectionUp, TLS for
// mqtts://) follows the donor's internal/mqtt.Publisher.Start.
type MQTT struct {
	cfg    config.MQTTConfig
	port   cog.Port
	logger *slog.Logger

	cm *autopaho.ConnectionManager
}

// NewMQTT creates an MQTT bridge over port but does not connect. Call
// Start to begin the connection and the forwarding loops. A nil logger
// is replaced with slog.Default.
func NewMQTT(cfg config.MQTTConfig, port cog.Port, logger *slog.Logger) *MQTT {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTT{cfg: cfg, port: port, logger: logger}
}

// Start connects to the configured broker, republishes every value the
// port produces to cfg.OutputTopic, and forwards every message received
// on cfg.InputTopic to the port's input. It blocks until ctx is
// cancelled.
func (m *MQTT) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(m.cfg.Broker)
	if err != nil {
		return fmt.Errorf("bridge: parse mqtt broker url: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls: []*url.URL{brokerURL},
		KeepAlive:  30,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			m.logger.Info("bridge: mqtt connected", "broker", m.cfg.Broker)
			subCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := cm.Subscribe(subCtx, &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{{Topic: m.cfg.InputTopic, QoS: 0}},
			}); err != nil {
				m.logger.Warn("bridge: mqtt subscribe failed", "topic", m.cfg.InputTopic, "error", err)
			}
		},
		OnConnectError: func(err error) {
			m.logger.Warn("bridge: mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: m.cfg.ClientID,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("bridge: mqtt connect: %w", err)
	}
	m.cm = cm

	cm.AddOnPublishReceived(func(pr autopaho.PublishReceived) (bool, error) {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("bridge: mqtt inbound handler panicked", "panic", r)
			}
		}()
		if !m.port.Send(pr.Packet.Payload) {
			m.logger.Debug("bridge: port closed, dropping inbound mqtt message")
		}
		return true, nil
	})

	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		m.logger.Warn("bridge: mqtt initial connection timed out, retrying in background", "error", err)
	}

	go m.publishLoop(ctx)

	<-ctx.Done()
	return cm.Disconnect(context.Background())
}

// publishLoop drains the port's output and republishes each value to
// the configured output topic until the port ends, or until a value
// arrives after ctx is cancelled (that value is not published).
func (m *MQTT) publishLoop(ctx context.Context) {
	for {
		v, ok := m.port.Receive()
		if !ok {
			m.logger.Debug("bridge: mqtt publish loop exiting, port closed")
			return
		}
		if ctx.Err() != nil {
			return
		}
		payload, err := toPayload(v)
		if err != nil {
			m.logger.Warn("bridge: could not encode value for mqtt", "error", err)
			continue
		}
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err = m.cm.Publish(pubCtx, &paho.Publish{
			Topic:   m.cfg.OutputTopic,
			Payload: payload,
			QoS:     0,
		})
		cancel()
		if err != nil {
			m.logger.Warn("bridge: mqtt publish failed", "error", err)
		}
	}
}

// toPayload encodes a cog output value as MQTT bytes. Byte and string
// values pass through unchanged; anything else falls back to its
// %v representation, since cogflow messages carry no typed schema.
func toPayload(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return []byte(fmt.Sprintf("%v", t)), nil
	}
}
