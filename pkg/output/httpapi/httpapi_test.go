package httpapi

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ericogr/ohmmeter/pkg/resistor"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

func measurement() resistor.Measurement {
	return resistor.Measurement{
		Timestamp:  time.Date(2025, 9, 19, 14, 41, 54, 0, time.UTC),
		Average:    1323,
		Resistance: 4774.9,
		Nominal:    4700,
		Bands:      resistor.Bands{Digit1: 4, Digit2: 7, Multiplier: 2},
		Labels:     [3]string{"AMA", "VIO", "VER"},
	}
}

func TestMeasurementBeforeFirstPublish(t *testing.T) {
	h := newHandler(zap.NewNop().Sugar())
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/measurement", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d want 503", rec.Code)
	}
}

func TestMeasurementJSON(t *testing.T) {
	h := newHandler(zap.NewNop().Sugar())
	_ = h.Publish(measurement())

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/measurement", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var got measurementResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Nominal != 4700 || got.Label != "4k7" || got.Resistance == nil || *got.Resistance != 4774.9 {
		t.Fatalf("response: %+v", got)
	}
	if got.Bands.Colors != [3]string{"yellow", "violet", "red"} || got.Bands.Multiplier != 100 {
		t.Fatalf("bands: %+v", got.Bands)
	}
}

func TestBandsMsgpack(t *testing.T) {
	h := newHandler(zap.NewNop().Sugar())
	_ = h.Publish(measurement())

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bands?format=msgpack", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Fatalf("content type: %q", ct)
	}
	var got map[string]interface{}
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	labels, ok := got["labels"].([]interface{})
	if !ok || labels[0] != "AMA" {
		t.Fatalf("labels: %v", got["labels"])
	}
}

func TestOpenCircuitResistanceIsNull(t *testing.T) {
	h := newHandler(zap.NewNop().Sugar())
	m := measurement()
	m.Resistance = math.Inf(1)
	m.OpenCircuit = true
	_ = h.Publish(m)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/measurement", nil))
	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["resistance"] != nil || got["open_circuit"] != true {
		t.Fatalf("open circuit response: %v", got)
	}
}

func TestHealthAndMethods(t *testing.T) {
	h := newHandler(zap.NewNop().Sugar())
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bands", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /api/bands: %d", rec.Code)
	}
}

func TestNewListensAndCloses(t *testing.T) {
	out, err := New("127.0.0.1:0", zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
