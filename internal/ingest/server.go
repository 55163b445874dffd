// Package ingest accepts raw location pings over HTTP, normalizes the
// heterogeneous payload shapes devices actually send, persists every sample,
// and evaluates geofence-exit logic against the remote store.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/cuadrantworks/fieldtrack/internal/remote"
)

// Server is the ingestion HTTP endpoint. Each request is fully independent;
// concurrent pings share nothing but the store.
type Server struct {
	store remote.Store
	fence *Geofencer
	log   *slog.Logger
	now   func() time.Time
}

// NewServer creates the ingestion server.
func NewServer(store remote.Store, log *slog.Logger) *Server {
	return &Server{
		store: store,
		fence: NewGeofencer(store, log),
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Routes returns the mux serving the ingestion endpoint. Devices in the
// field send both GETs with query parameters and POSTs with form or JSON
// bodies, so both methods are accepted at the same path.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ingest/location", s.handlePing)
	mux.HandleFunc("POST /ingest/location", s.handlePing)
	return mux
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ping, err := s.decode(r)
	if err != nil {
		errorWrite(w, http.StatusBadRequest, err)
		return
	}

	// The raw sample is this request's durability guarantee: it is written
	// unconditionally, marked unprocessed, before any geofence work.
	row := remote.RawLocationRow{
		DeviceID:   &ping.DeviceID,
		Latitude:   ping.Latitude,
		Longitude:  ping.Longitude,
		Accuracy:   ping.Accuracy,
		Altitude:   ping.Altitude,
		Heading:    ping.Heading,
		Speed:      ping.Speed,
		RecordedMs: ping.RecordedMs,
		Processed:  false,
	}
	if err := s.store.InsertRawLocations(ctx, []remote.RawLocationRow{row}); err != nil {
		s.log.Error("raw sample write failed", "device_id", ping.DeviceID, "error", err)
		errorWrite(w, http.StatusInternalServerError, errors.New("storing location sample"))
		return
	}

	if err := s.fence.Process(ctx, ping); err != nil {
		// The sample is durable; a geofence failure must not fail the ping.
		s.log.Warn("geofence stage failed", "device_id", ping.DeviceID, "error", err)
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}

// decode merges query parameters with whatever body shape the request
// carries. Query parameters form the base layer; body fields override.
func (s *Server) decode(r *http.Request) (Ping, error) {
	fields := fieldsFromValues(r.URL.Query())

	if r.Method == http.MethodPost && r.ContentLength != 0 {
		ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch ct {
		case "application/json":
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return Ping{}, fmt.Errorf("%w: reading body: %v", ErrInvalidPayload, err)
			}
			bodyFields, err := fieldsFromJSON(body)
			if err != nil {
				return Ping{}, err
			}
			fields = merge(fields, bodyFields)
		default:
			if err := r.ParseForm(); err != nil {
				return Ping{}, fmt.Errorf("%w: parsing form body: %v", ErrInvalidPayload, err)
			}
			fields = merge(fields, fieldsFromValues(r.PostForm))
		}
	}

	return parsePing(fields, s.now())
}

type errBody struct {
	Error string `json:"error"`
}

func errorWrite(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errBody{Error: err.Error()})
}
