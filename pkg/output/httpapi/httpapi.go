// Package httpapi serves the most recent measurement over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ericogr/ohmmeter/pkg/output"
	"github.com/ericogr/ohmmeter/pkg/resistor"
	"github.com/gorilla/mux"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const DefaultListen = ":8080"

type HTTPOutput struct {
	mu     sync.RWMutex
	latest *resistor.Measurement
	server *http.Server
	log    *zap.SugaredLogger
}

// New starts listening on addr and serves until Close.
func New(addr string, log *zap.SugaredLogger) (output.Output, error) {
	if addr == "" {
		addr = DefaultListen
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	h := newHandler(log)
	h.server = &http.Server{Handler: h.Router(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("http server stopped", "error", err)
		}
	}()
	log.Infow("http status endpoint listening", "addr", ln.Addr().String())
	return h, nil
}

func newHandler(log *zap.SugaredLogger) *HTTPOutput {
	return &HTTPOutput{log: log}
}

// Router returns the API routes.
func (h *HTTPOutput) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/measurement", h.handleMeasurement).Methods(http.MethodGet)
	api.HandleFunc("/bands", h.handleBands).Methods(http.MethodGet)
	return r
}

func (h *HTTPOutput) Publish(m resistor.Measurement) error {
	h.mu.Lock()
	h.latest = &m
	h.mu.Unlock()
	return nil
}

func (h *HTTPOutput) Close() error {
	if h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.server.Shutdown(ctx)
}

func (h *HTTPOutput) current() (resistor.Measurement, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return resistor.Measurement{}, false
	}
	return *h.latest, true
}

type measurementResponse struct {
	Timestamp   time.Time `json:"timestamp"`
	Average     float64   `json:"adc"`
	StdDev      float64   `json:"stddev"`
	Voltage     float64   `json:"voltage"`
	Resistance  *float64  `json:"resistance"`
	Nominal     float64   `json:"nominal"`
	Label       string    `json:"label"`
	OpenCircuit bool      `json:"open_circuit"`
	Bands       bandsView `json:"bands"`
}

type bandsView struct {
	Digits     [3]int    `json:"digits"`
	Colors     [3]string `json:"colors"`
	Labels     [3]string `json:"labels"`
	Multiplier float64   `json:"multiplier"`
}

func newBandsView(m resistor.Measurement) bandsView {
	v := bandsView{
		Digits:     [3]int{m.Bands.Digit1, m.Bands.Digit2, m.Bands.Multiplier},
		Labels:     m.Labels,
		Multiplier: math.Pow10(m.Bands.Multiplier),
	}
	if cs, err := m.Bands.Colors(); err == nil {
		for i, c := range cs {
			v.Colors[i] = c.String()
		}
	}
	return v
}

func newMeasurementResponse(m resistor.Measurement) measurementResponse {
	resp := measurementResponse{
		Timestamp:   m.Timestamp,
		Average:     m.Average,
		StdDev:      finite(m.StdDev),
		Voltage:     m.Voltage,
		Nominal:     m.Nominal,
		Label:       resistor.FormatOhms(m.Nominal),
		OpenCircuit: m.OpenCircuit,
		Bands:       newBandsView(m),
	}
	if !math.IsInf(m.Resistance, 0) && !math.IsNaN(m.Resistance) {
		r := m.Resistance
		resp.Resistance = &r
	}
	return resp
}

func finite(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

func (h *HTTPOutput) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (h *HTTPOutput) handleMeasurement(w http.ResponseWriter, r *http.Request) {
	m, ok := h.current()
	if !ok {
		http.Error(w, "no measurement yet", http.StatusServiceUnavailable)
		return
	}
	h.write(w, r, newMeasurementResponse(m))
}

func (h *HTTPOutput) handleBands(w http.ResponseWriter, r *http.Request) {
	m, ok := h.current()
	if !ok {
		http.Error(w, "no measurement yet", http.StatusServiceUnavailable)
		return
	}
	h.write(w, r, newBandsView(m))
}

// write encodes data as JSON, or as MessagePack when format=msgpack.
func (h *HTTPOutput) write(w http.ResponseWriter, r *http.Request, data any) {
	var err error
	if r.URL.Query().Get("format") == "msgpack" {
		w.Header().Set("Content-Type", "application/x-msgpack")
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		err = enc.Encode(data)
	} else {
		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode(data)
	}
	if err != nil {
		h.log.Warnw("encode response", "path", r.URL.Path, "error", err)
	}
}
