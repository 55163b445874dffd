package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	str := func(s string) *string { return &s }

	tests := []struct {
		name string
		in   *string
		want int64
	}{
		{"absent", nil, now.UnixMilli()},
		{"empty", str(""), now.UnixMilli()},
		{"epoch seconds", str("1700000000"), 1700000000000},
		{"epoch millis", str("1700000000000"), 1700000000000},
		{"fractional seconds", str("1700000000.5"), 1700000000500},
		{"iso string", str("2023-11-14T22:13:20Z"), 1700000000000},
		{"garbage falls back", str("yesterday"), now.UnixMilli()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveTimestamp(tt.in, now))
		})
	}
}

func TestMergePrefersOverlay(t *testing.T) {
	str := func(s string) *string { return &s }
	base := rawFields{id: str("dev-1"), lat: str("1"), lon: str("2")}
	over := rawFields{lat: str("48.2"), timestamp: str("1700000000")}

	got := merge(base, over)

	assert.Equal(t, "dev-1", *got.id)
	assert.Equal(t, "48.2", *got.lat)
	assert.Equal(t, "2", *got.lon)
	assert.Equal(t, "1700000000", *got.timestamp)
}
