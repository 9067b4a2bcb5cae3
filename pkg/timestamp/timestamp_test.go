package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToUnixMs(t *testing.T) {
	ref := time.Date(2025, 7, 6, 14, 3, 12, 345_000_000, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		want int64
	}{
		{"zero", time.Time{}, 0},
		{"reference", ref, 1751810592345},
		{"sub-millisecond truncated", ref.Add(999 * time.Microsecond), 1751810592345},
		{"other zone", ref.In(time.FixedZone("CEST", 2*60*60)), 1751810592345},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToUnixMs(tt.in))
		})
	}
}
