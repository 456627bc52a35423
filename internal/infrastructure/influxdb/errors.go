package influxdb

import "errors"

// ErrNotConnected is returned by operations on a closed client.
var ErrNotConnected = errors.New("influxdb: not connected")
