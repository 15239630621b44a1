package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hikgate/hikgate-core/internal/infrastructure/config"
)

// Client is a publish-only MQTT connection announcing the gateway's status
// on a retained topic. Safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	up atomic.Bool

	hooksMu sync.RWMutex
	hooks   hooks
}

type hooks struct {
	connect    func()
	disconnect func(err error)
}

// Connect dials the broker and waits for the first connection up to the
// connect timeout. Later drops are retried in the background.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{cfg: cfg, topics: NewTopics(cfg.TopicPrefix)}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	if err := wait(c.client.Connect(), defaultConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously and may not have fired yet.
	c.up.Store(true)
	return c, nil
}

// wait blocks on tok for at most d.
func wait(tok pahomqtt.Token, d time.Duration) error {
	if !tok.WaitTimeout(d) {
		return fmt.Errorf("timeout after %v", d)
	}
	return tok.Error()
}

// Topics returns the topic builders for this client's prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// announce publishes the retained status message without waiting.
func (c *Client) announce(status, reason string) pahomqtt.Token {
	return c.client.Publish(c.topics.SystemStatus(), c.QoS(), true,
		statusPayload(status, c.cfg.Broker.ClientID, reason))
}

func (c *Client) handleConnect() {
	c.up.Store(true)
	c.announce("online", "")

	c.hooksMu.RLock()
	fn := c.hooks.connect
	c.hooksMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.up.Store(false)

	c.hooksMu.RLock()
	fn := c.hooks.disconnect
	c.hooksMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// Close publishes a graceful offline status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		_ = wait(c.announce("offline", reasonShutdown), defaultPublishTimeout) //nolint:errcheck // best effort; the LWT covers a failure
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.up.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c != nil && c.up.Load() && c.client != nil && c.client.IsConnected()
}

// SetOnConnect sets a callback run on every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.hooksMu.Lock()
	c.hooks.connect = fn
	c.hooksMu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection is lost.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hooksMu.Lock()
	c.hooks.disconnect = fn
	c.hooksMu.Unlock()
}
