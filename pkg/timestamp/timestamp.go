// Package timestamp handles int64 Unix-millisecond timestamps used on the wire.
//
// Zero means "not set": the zero time maps to 0.
package timestamp

import "time"

// ToUnixMs converts t to Unix milliseconds, 0 for the zero time.
func ToUnixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
