package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const measurementVendorCalls = "vendor_calls"

// WriteVendorCall records one signed HikCentral call. It satisfies
// hikcentral.Observer.
func (c *Client) WriteVendorCall(path, code string, elapsed time.Duration) {
	if !c.IsConnected() {
		return
	}

	c.writer.WritePoint(write.NewPoint(measurementVendorCalls,
		map[string]string{"path": path, "code": code},
		map[string]any{
			"duration_ms": float64(elapsed.Microseconds()) / 1000,
			"ok":          code == "0",
		},
		c.now(),
	))
}
