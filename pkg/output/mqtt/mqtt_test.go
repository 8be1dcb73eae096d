package mqtt

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/ohmmeter/pkg/config"
	"github.com/ericogr/ohmmeter/pkg/resistor"
	"github.com/vmihailenco/msgpack/v5"
)

func sample() resistor.Measurement {
	return resistor.Measurement{
		Timestamp:  time.Unix(1700000000, 0),
		Average:    1323,
		Voltage:    1.07,
		Resistance: 4774.9,
		Nominal:    4700,
		Bands:      resistor.Bands{Digit1: 4, Digit2: 7, Multiplier: 2},
		Labels:     [3]string{"AMA", "VIO", "VER"},
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := withDefaults(config.MQTTConfig{})
	if cfg.Server != DefaultServer || cfg.StateTopic != DefaultStateTopic || cfg.Format != FormatJSON {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !strings.HasPrefix(cfg.ClientID, clientIDPrefix) || len(cfg.ClientID) != len(clientIDPrefix)+8 {
		t.Fatalf("client id: %q", cfg.ClientID)
	}
	cfg = withDefaults(config.MQTTConfig{ClientID: "bench", StateTopic: "lab/ohm"})
	if cfg.ClientID != "bench" || cfg.StateTopic != "lab/ohm" {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
}

func TestEncodeJSON(t *testing.T) {
	b, err := encode(FormatJSON, sample())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["nominal"] != 4700.0 || got["label"] != "4k7" || got["resistance"] != 4774.9 {
		t.Fatalf("payload: %v", got)
	}
	colors := got["colors"].([]interface{})
	if colors[0] != "AMA" || colors[2] != "VER" {
		t.Fatalf("colors: %v", colors)
	}
}

func TestEncodeOpenCircuit(t *testing.T) {
	m := sample()
	m.Resistance = math.Inf(1)
	m.OpenCircuit = true
	b, err := encode(FormatJSON, m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(b), `"resistance":null`) {
		t.Fatalf("open circuit payload: %s", b)
	}
}

func TestEncodeMsgpack(t *testing.T) {
	b, err := encode(FormatMsgpack, sample())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got statePayload
	if err := msgpack.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Nominal != 4700 || got.Bands != [3]int{4, 7, 2} {
		t.Fatalf("decoded payload: %+v", got)
	}
}

func TestDiscoveryPayload(t *testing.T) {
	p := discoveryPayload(config.MQTTConfig{ClientID: "bench", StateTopic: "lab/ohm"})
	if p[keyName] != "Ohmmeter bench" || p[keyUniqueID] != "bench" || p[keyUnitOfMeasurement] != unitOhms {
		t.Fatalf("discovery: %v", p)
	}
	if p[keyStateTopic] != "lab/ohm" {
		t.Fatalf("state topic: %v", p[keyStateTopic])
	}
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type sent struct {
	topic    string
	retained bool
	payload  []byte
}

// stubClient records publishes; every other paho.Client method is unused.
type stubClient struct {
	paho.Client
	sent []sent
	err  error
}

func (c *stubClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.sent = append(c.sent, sent{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{err: c.err}
}

func TestPublishRawWithoutClient(t *testing.T) {
	err := (&MQTTOutput{}).PublishRaw("x", []byte("{}"), false)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("got %v want ErrNotConnected", err)
	}
}

func TestPublishSendsStateNotRetained(t *testing.T) {
	c := &stubClient{}
	m := newWithClient(c, withDefaults(config.MQTTConfig{ClientID: "bench"}))
	if err := m.Publish(sample()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(c.sent) != 1 {
		t.Fatalf("sent %d messages", len(c.sent))
	}
	if c.sent[0].topic != DefaultStateTopic || c.sent[0].retained {
		t.Fatalf("unexpected publish: %+v", c.sent[0])
	}
	var got map[string]interface{}
	if err := json.Unmarshal(c.sent[0].payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got["nominal"] != 4700.0 {
		t.Fatalf("nominal %v", got["nominal"])
	}
}

func TestPublishWrapsBrokerError(t *testing.T) {
	boom := errors.New("broker gone")
	c := &stubClient{err: boom}
	m := newWithClient(c, withDefaults(config.MQTTConfig{ClientID: "bench"}))
	if err := m.Publish(sample()); !errors.Is(err, boom) {
		t.Fatalf("got %v want wrapped %v", err, boom)
	}
}

func TestAnnounceIsRetained(t *testing.T) {
	c := &stubClient{}
	cfg := withDefaults(config.MQTTConfig{ClientID: "bench", DiscoveryTopic: "homeassistant/sensor/bench/config"})
	m := newWithClient(c, cfg)
	if err := m.announce(cfg); err != nil {
		t.Fatalf("announce: %v", err)
	}
	if len(c.sent) != 1 || c.sent[0].topic != cfg.DiscoveryTopic || !c.sent[0].retained {
		t.Fatalf("unexpected discovery publish: %+v", c.sent)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(c.sent[0].payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got["unique_id"] != "bench" || got["state_topic"] != DefaultStateTopic {
		t.Fatalf("discovery payload: %v", got)
	}
}
