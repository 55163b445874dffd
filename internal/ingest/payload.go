package ingest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Ping is the normalized form of one location ping, whatever shape it
// arrived in.
type Ping struct {
	DeviceID   string
	Latitude   float64
	Longitude  float64
	Accuracy   *float64
	Altitude   *float64
	Heading    *float64
	Speed      *float64
	RecordedMs int64
}

// rawFields is the flat field set every accepted payload shape normalizes
// to before validation. Values stay textual until parsePing; a nil field
// was absent from the payload.
type rawFields struct {
	id        *string
	lat       *string
	lon       *string
	accuracy  *string
	altitude  *string
	heading   *string
	speed     *string
	timestamp *string
}

// merge overlays b onto a: body fields override query parameters.
func merge(a, b rawFields) rawFields {
	out := a
	if b.id != nil {
		out.id = b.id
	}
	if b.lat != nil {
		out.lat = b.lat
	}
	if b.lon != nil {
		out.lon = b.lon
	}
	if b.accuracy != nil {
		out.accuracy = b.accuracy
	}
	if b.altitude != nil {
		out.altitude = b.altitude
	}
	if b.heading != nil {
		out.heading = b.heading
	}
	if b.speed != nil {
		out.speed = b.speed
	}
	if b.timestamp != nil {
		out.timestamp = b.timestamp
	}
	return out
}

// fieldsFromValues normalizes query parameters or a form-encoded body.
func fieldsFromValues(v url.Values) rawFields {
	pick := func(keys ...string) *string {
		for _, k := range keys {
			if v.Has(k) {
				s := v.Get(k)
				return &s
			}
		}
		return nil
	}
	return rawFields{
		id:        pick("id", "device_id"),
		lat:       pick("lat", "latitude"),
		lon:       pick("lon", "lng", "longitude"),
		accuracy:  pick("accuracy"),
		altitude:  pick("altitude"),
		heading:   pick("heading", "bearing"),
		speed:     pick("speed"),
		timestamp: pick("timestamp", "time"),
	}
}

// fieldsFromJSON normalizes a JSON body. Accepted shapes are flat objects,
// objects nesting coordinates under "location", and objects nesting them
// under "coords" (the browser geolocation layout). Anything else is
// rejected rather than probed further.
func fieldsFromJSON(body []byte) (rawFields, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return rawFields{}, fmt.Errorf("%w: decoding json body: %v", ErrInvalidPayload, err)
	}

	coords := obj
	if nested, ok := obj["location"].(map[string]any); ok {
		coords = nested
	} else if nested, ok := obj["coords"].(map[string]any); ok {
		coords = nested
	}

	pick := func(m map[string]any, keys ...string) *string {
		for _, k := range keys {
			if val, ok := m[k]; ok {
				if s := stringify(val); s != nil {
					return s
				}
			}
		}
		return nil
	}

	f := rawFields{
		lat:      pick(coords, "lat", "latitude"),
		lon:      pick(coords, "lon", "lng", "longitude"),
		accuracy: pick(coords, "accuracy"),
		altitude: pick(coords, "altitude"),
		heading:  pick(coords, "heading", "bearing"),
		speed:    pick(coords, "speed"),
	}
	// Identity and timestamp live at the top level even in wrapped shapes,
	// but a wrapper may carry its own timestamp.
	f.id = pick(obj, "id", "device_id")
	f.timestamp = pick(coords, "timestamp", "time")
	if f.timestamp == nil {
		f.timestamp = pick(obj, "timestamp", "time")
	}
	return f, nil
}

func stringify(v any) *string {
	switch val := v.(type) {
	case string:
		return &val
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

// parsePing validates the normalized fields and resolves the timestamp.
func parsePing(f rawFields, now time.Time) (Ping, error) {
	if f.id == nil || *f.id == "" {
		return Ping{}, fmt.Errorf("%w: missing device id", ErrInvalidPayload)
	}
	if f.lat == nil || f.lon == nil {
		return Ping{}, fmt.Errorf("%w: missing coordinates", ErrInvalidPayload)
	}
	lat, err := strconv.ParseFloat(*f.lat, 64)
	if err != nil {
		return Ping{}, fmt.Errorf("%w: latitude %q is not numeric", ErrInvalidPayload, *f.lat)
	}
	lon, err := strconv.ParseFloat(*f.lon, 64)
	if err != nil {
		return Ping{}, fmt.Errorf("%w: longitude %q is not numeric", ErrInvalidPayload, *f.lon)
	}

	return Ping{
		DeviceID:   *f.id,
		Latitude:   lat,
		Longitude:  lon,
		Accuracy:   parseOptFloat(f.accuracy),
		Altitude:   parseOptFloat(f.altitude),
		Heading:    parseOptFloat(f.heading),
		Speed:      parseOptFloat(f.speed),
		RecordedMs: resolveTimestamp(f.timestamp, now),
	}, nil
}

func parseOptFloat(s *string) *float64 {
	if s == nil {
		return nil
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// resolveTimestamp turns a textual timestamp into epoch milliseconds.
// Numeric values below 1e10 are epoch seconds, at or above are epoch
// milliseconds. Non-numeric strings get one date-parsing attempt; anything
// unusable falls back to the ingestion time.
func resolveTimestamp(s *string, now time.Time) int64 {
	if s == nil || *s == "" {
		return now.UnixMilli()
	}
	if n, err := strconv.ParseFloat(*s, 64); err == nil {
		if n < 1e10 {
			return int64(n * 1000)
		}
		return int64(n)
	}
	if t, err := time.Parse(time.RFC3339Nano, *s); err == nil {
		return t.UnixMilli()
	}
	return now.UnixMilli()
}
