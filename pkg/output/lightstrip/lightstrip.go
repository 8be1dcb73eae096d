package lightstrip

import (
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/ohmmeter/pkg/config"
	"github.com/ericogr/ohmmeter/pkg/output"
	"github.com/ericogr/ohmmeter/pkg/output/mqtt"
	"github.com/ericogr/ohmmeter/pkg/resistor"
	"go.uber.org/zap"
)

const DefaultTopic = "ohmmeter/strip"

// Transmitter sends a full frame of GRB words to the strip.
type Transmitter interface {
	Transmit(words []uint32) error
	Close() error
}

type LightStripOutput struct {
	tx Transmitter
}

func New(tx Transmitter) output.Output { return &LightStripOutput{tx: tx} }

// NewFromConfig selects the transmitter named in cfg.
func NewFromConfig(cfg config.LightStripConfig, log *zap.SugaredLogger) (output.Output, error) {
	switch cfg.Transmitter {
	case "", "log":
		return New(NewLogTransmitter(log)), nil
	case "mqtt":
		var mc config.MQTTConfig
		if cfg.MQTT != nil {
			mc = *cfg.MQTT
		}
		client, err := mqtt.Dial(mc)
		if err != nil {
			return nil, fmt.Errorf("lightstrip: %w", err)
		}
		return New(NewMQTTTransmitter(client, cfg.Topic)), nil
	default:
		return nil, fmt.Errorf("lightstrip: unknown transmitter %q", cfg.Transmitter)
	}
}

func (l *LightStripOutput) Publish(m resistor.Measurement) error {
	f, err := BuildFrame(m.Bands)
	if err != nil {
		return err
	}
	return l.tx.Transmit(f.Words())
}

func (l *LightStripOutput) Close() error { return l.tx.Close() }

// LogTransmitter writes frames to the debug log. Useful without hardware.
type LogTransmitter struct {
	log *zap.SugaredLogger
}

func NewLogTransmitter(log *zap.SugaredLogger) *LogTransmitter {
	return &LogTransmitter{log: log}
}

func (t *LogTransmitter) Transmit(words []uint32) error {
	lit := make(map[int]string)
	for i, w := range words {
		if w != 0 {
			lit[i] = fmt.Sprintf("%06X", w)
		}
	}
	t.log.Debugw("light frame", "pixels", len(words), "lit", lit)
	return nil
}

func (t *LogTransmitter) Close() error { return nil }

// MQTTTransmitter hands frames to a remote strip controller as a JSON array
// of GRB words.
type MQTTTransmitter struct {
	client paho.Client
	topic  string
}

func NewMQTTTransmitter(client paho.Client, topic string) *MQTTTransmitter {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTTransmitter{client: client, topic: topic}
}

func (t *MQTTTransmitter) Transmit(words []uint32) error {
	b, err := json.Marshal(words)
	if err != nil {
		return err
	}
	token := t.client.Publish(t.topic, 0, false, b)
	token.Wait()
	return token.Error()
}

func (t *MQTTTransmitter) Close() error {
	t.client.Disconnect(250)
	return nil
}
