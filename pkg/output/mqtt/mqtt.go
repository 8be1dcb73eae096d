package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/ohmmeter/pkg/config"
	"github.com/ericogr/ohmmeter/pkg/output"
	"github.com/ericogr/ohmmeter/pkg/resistor"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	// defaults
	DefaultServer     = "tcp://localhost:1883"
	DefaultStateTopic = "ohmmeter/state"
	clientIDPrefix    = "ohmmeter-"
	// discovery payload keys/values
	keyName                = "name"
	keyStateTopic          = "state_topic"
	keyUnitOfMeasurement   = "unit_of_measurement"
	keyStateClass          = "state_class"
	keyValueTemplate       = "value_template"
	keyJSONAttributesTopic = "json_attributes_topic"
	keyUniqueID            = "unique_id"
	keyIcon                = "icon"
	unitOhms               = "Ω"
	stateClassMeasurement  = "measurement"
	valueTemplateNominal   = "{{ value_json.nominal }}"
	iconResistor           = "mdi:resistor"

	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// ErrNotConnected is returned when publishing on an output without a client.
var ErrNotConnected = errors.New("mqtt: no broker connection")

type MQTTOutput struct {
	client     mqtt.Client
	stateTopic string
	format     string
}

// withDefaults fills the broker, client id and topic when left empty.
func withDefaults(cfg config.MQTTConfig) config.MQTTConfig {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.ClientID == "" {
		cfg.ClientID = clientIDPrefix + uuid.New().String()[:8]
	}
	if cfg.StateTopic == "" {
		cfg.StateTopic = DefaultStateTopic
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	return cfg
}

// Dial connects to the broker described by cfg. It is shared with the light
// strip transmitter.
func Dial(cfg config.MQTTConfig) (mqtt.Client, error) {
	cfg = withDefaults(cfg)
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID).SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

func NewMQTT(cfg config.MQTTConfig, log *zap.SugaredLogger) (output.Output, error) {
	cfg = withDefaults(cfg)
	if cfg.Format != FormatJSON && cfg.Format != FormatMsgpack {
		return nil, fmt.Errorf("mqtt: unknown payload format %q", cfg.Format)
	}
	client, err := Dial(cfg)
	if err != nil {
		return nil, err
	}
	m := newWithClient(client, cfg)
	if cfg.DiscoveryTopic != "" {
		if err := m.announce(cfg); err != nil {
			log.Warnw("mqtt discovery publish failed", "topic", cfg.DiscoveryTopic, "error", err)
		}
	}
	return m, nil
}

// announce sends the retained Home Assistant config for the nominal sensor.
func (m *MQTTOutput) announce(cfg config.MQTTConfig) error {
	b, err := json.Marshal(discoveryPayload(cfg))
	if err != nil {
		return err
	}
	return m.PublishRaw(cfg.DiscoveryTopic, b, true)
}

func newWithClient(client mqtt.Client, cfg config.MQTTConfig) *MQTTOutput {
	return &MQTTOutput{client: client, stateTopic: cfg.StateTopic, format: cfg.Format}
}

func (m *MQTTOutput) Publish(ms resistor.Measurement) error {
	b, err := encode(m.format, ms)
	if err != nil {
		return err
	}
	return m.PublishRaw(m.stateTopic, b, false)
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

// PublishRaw sends an already encoded payload at QoS 0 and waits for the
// client to hand it off. Discovery configs are sent retained, state is not.
func (m *MQTTOutput) PublishRaw(topic string, payload []byte, retained bool) error {
	if m.client == nil {
		return ErrNotConnected
	}
	token := m.client.Publish(topic, 0, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

// statePayload is what subscribers see; Inf and NaN are not valid JSON so the
// open circuit case carries a nil resistance.
type statePayload struct {
	Timestamp   int64     `json:"timestamp" msgpack:"timestamp"`
	Average     float64   `json:"adc" msgpack:"adc"`
	Voltage     float64   `json:"voltage" msgpack:"voltage"`
	Resistance  *float64  `json:"resistance" msgpack:"resistance"`
	Nominal     float64   `json:"nominal" msgpack:"nominal"`
	Label       string    `json:"label" msgpack:"label"`
	OpenCircuit bool      `json:"open_circuit" msgpack:"open_circuit"`
	Bands       [3]int    `json:"bands" msgpack:"bands"`
	Colors      [3]string `json:"colors" msgpack:"colors"`
}

func newStatePayload(m resistor.Measurement) statePayload {
	p := statePayload{
		Timestamp:   m.Timestamp.Unix(),
		Average:     m.Average,
		Voltage:     m.Voltage,
		Nominal:     m.Nominal,
		Label:       resistor.FormatOhms(m.Nominal),
		OpenCircuit: m.OpenCircuit,
		Bands:       [3]int{m.Bands.Digit1, m.Bands.Digit2, m.Bands.Multiplier},
		Colors:      m.Labels,
	}
	if !m.OpenCircuit {
		r := m.Resistance
		p.Resistance = &r
	}
	return p
}

func encode(format string, m resistor.Measurement) ([]byte, error) {
	p := newStatePayload(m)
	if format == FormatMsgpack {
		return msgpack.Marshal(p)
	}
	return json.Marshal(p)
}

// helper: base discovery payload for the nominal value sensor
func discoveryPayload(cfg config.MQTTConfig) map[string]interface{} {
	name := cfg.DiscoveryName
	if name == "" {
		name = fmt.Sprintf("Ohmmeter %s", cfg.ClientID)
	}
	uid := cfg.DiscoveryUniqueID
	if uid == "" {
		uid = cfg.ClientID
	}
	payload := map[string]interface{}{
		keyName:                name,
		keyStateTopic:          cfg.StateTopic,
		keyUnitOfMeasurement:   unitOhms,
		keyStateClass:          stateClassMeasurement,
		keyValueTemplate:       valueTemplateNominal,
		keyJSONAttributesTopic: cfg.StateTopic,
		keyIcon:                iconResistor,
	}
	if uid != "" {
		payload[keyUniqueID] = uid
	}
	return payload
}
