package influxdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/hikgate/hikgate-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Client batches vendor call points into one bucket. Writes never block the
// caller; failures surface through the SetOnError callback.
//
// All methods are safe for concurrent use and on a nil *Client.
type Client struct {
	influx influxdb2.Client
	writer api.WriteAPI
	now    func() time.Time

	closed  atomic.Bool
	onError atomic.Pointer[func(error)]
}

// Connect verifies the server answers a ping and starts the batching writer.
// It returns ErrDisabled when cfg.Enabled is false.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, influx); err != nil {
		influx.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		influx: influx,
		writer: influx.WriteAPI(cfg.Org, cfg.Bucket),
		now:    time.Now,
	}
	go c.forwardErrors()
	return c, nil
}

// writeOptions maps the batch settings, applying defaults to unset values.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) //nolint:gosec // positive by construction
}

func ping(ctx context.Context, influx influxdb2.Client) error {
	ok, err := influx.Ping(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("ping: %w", err)
	case !ok:
		return fmt.Errorf("server not healthy")
	}
	return nil
}

// forwardErrors runs until the write API closes its error channel.
func (c *Client) forwardErrors() {
	for err := range c.writer.Errors() {
		if fn := c.onError.Load(); fn != nil {
			(*fn)(err)
		}
	}
}

// SetOnError installs the callback for asynchronous write failures.
func (c *Client) SetOnError(fn func(err error)) {
	if c == nil {
		return
	}
	c.onError.Store(&fn)
}

// IsConnected reports whether the client is open.
func (c *Client) IsConnected() bool {
	return c != nil && c.influx != nil && !c.closed.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.influx); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush blocks until buffered points are written.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writer.Flush()
	}
}

// Close writes what is buffered and releases the client. Later writes are
// dropped.
func (c *Client) Close() error {
	if c == nil || c.influx == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writer.Flush()
	c.influx.Close()
	return nil
}
