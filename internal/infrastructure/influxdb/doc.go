// Package influxdb records HikCentral call metrics in InfluxDB.
//
// Every signed vendor call is written as one point in the vendor_calls
// measurement, tagged by path and result code, with the latency in
// milliseconds. Writes are batched and non-blocking; async write failures go
// to the callback set with SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	gateway.SetObserver(client)
package influxdb
