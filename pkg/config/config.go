package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	OutputConsole    = "console"
	OutputDisplay    = "display"
	OutputLightStrip = "lightstrip"
	OutputMQTT       = "mqtt"
	OutputHTTP       = "http"

	SensorReal       = "real"
	SensorSimulation = "simulation"
)

type MQTTConfig struct {
	Server            string `json:"server"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientID          string `json:"client_id"`
	StateTopic        string `json:"state_topic"`
	DiscoveryTopic    string `json:"discovery_topic,omitempty"`
	DiscoveryName     string `json:"discovery_name,omitempty"`
	DiscoveryUniqueID string `json:"discovery_unique_id,omitempty"`
	Format            string `json:"format,omitempty"` // json|msgpack
}

// DisplayConfig describes an SSD1306 panel; the controller answers at 0x3C.
type DisplayConfig struct {
	I2CBus string `json:"i2c_bus"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type LightStripConfig struct {
	// Transmitter selects where frames go: "log" or "mqtt".
	Transmitter string      `json:"transmitter"`
	Topic       string      `json:"topic,omitempty"`
	MQTT        *MQTTConfig `json:"mqtt,omitempty"`
}

type HTTPConfig struct {
	Listen string `json:"listen"`
}

type OutputConfig struct {
	Type string `json:"type"`
	// IntervalMs throttles an mqtt or http output to at most one publish per
	// interval; 0 publishes every cycle.
	IntervalMs int               `json:"interval_ms,omitempty"`
	MQTT       *MQTTConfig       `json:"mqtt,omitempty"`
	Display    *DisplayConfig    `json:"display,omitempty"`
	LightStrip *LightStripConfig `json:"lightstrip,omitempty"`
	HTTP       *HTTPConfig       `json:"http,omitempty"`
}

type ADCConfig struct {
	I2CBus     string `json:"i2c_bus"`
	I2CAddress int    `json:"i2c_address"`
	Channel    int    `json:"channel"`
	SampleRate int    `json:"sample_rate"`
}

type SimulationConfig struct {
	Resistance float64 `json:"resistance"`
	Noise      int     `json:"noise"`
	Seed       int64   `json:"seed"`
}

type ResetConfig struct {
	// Pin is the GPIO name of the maintenance button; empty disables it.
	Pin     string   `json:"pin"`
	Command []string `json:"command"`
}

type LogConfig struct {
	Debug bool   `json:"debug"`
	File  string `json:"file,omitempty"`
}

type Config struct {
	KnownResistance  float64          `json:"known_resistance"`
	FullScale        int              `json:"full_scale"`
	ReferenceVoltage float64          `json:"reference_voltage"`
	SampleCount      int              `json:"sample_count"`
	SampleDelayMs    int              `json:"sample_delay_ms"`
	IntervalMs       int              `json:"interval_ms"`
	SensorType       string           `json:"sensor_type"`
	ADC              ADCConfig        `json:"adc"`
	Simulation       SimulationConfig `json:"simulation"`
	Outputs          []OutputConfig   `json:"outputs"`
	Reset            ResetConfig      `json:"reset"`
	Log              LogConfig        `json:"log"`
}

func DefaultConfig() Config {
	return Config{
		KnownResistance:  10000,
		FullScale:        4095,
		ReferenceVoltage: 3.31,
		SampleCount:      500,
		SampleDelayMs:    1,
		IntervalMs:       700,
		SensorType:       SensorReal,
		ADC: ADCConfig{
			I2CBus:     "1",
			I2CAddress: 0x48,
			Channel:    0,
			SampleRate: 860,
		},
		Simulation: SimulationConfig{Resistance: 4700, Noise: 2, Seed: 1},
		Outputs:    []OutputConfig{{Type: OutputConsole}},
	}
}

// LoadFromFlags loads configuration from a JSON file (optional) and the
// process command line. Flags override values present in the JSON file.
func LoadFromFlags() (Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadFromFlags for an explicit argument list.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("ohmmeter", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to JSON config file")
	flagKnown := fs.Float64("known-resistance", math.NaN(), "Known divider resistor in ohms")
	flagFullScale := fs.Int("full-scale", -1, "ADC full-scale code")
	flagVRef := fs.Float64("reference-voltage", math.NaN(), "ADC reference voltage")
	flagSamples := fs.Int("samples", -1, "Samples averaged per measurement")
	flagSampleDelay := fs.Int("sample-delay-ms", -1, "Delay between samples in ms")
	flagInterval := fs.Int("interval-ms", -1, "Delay between measurements in ms")
	flagSensorType := fs.String("sensor-type", "", "sensor type: real|simulation")
	flagI2CBus := fs.String("i2c-bus", "", "ADC I2C bus (e.g., '1' -> /dev/i2c-1)")
	flagI2CAddStr := fs.String("i2c-address", "", "ADC I2C address (decimal or 0x hex)")
	flagChannel := fs.Int("channel", -1, "ADC input channel (0-3)")
	flagSimR := fs.Float64("simulate-resistance", math.NaN(), "Resistance seen by the simulated sensor")
	flagOutputs := fs.String("outputs", "", "Comma-separated outputs (console,display,lightstrip,mqtt,http)")
	flagOutputIntervals := fs.String("output-intervals", "", "Comma-separated publish throttles e.g. mqtt=5000,http=1000")
	flagMQTTServer := fs.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := fs.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := fs.String("mqtt-pass", "", "MQTT password")
	flagClientID := fs.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := fs.String("mqtt-topic", "", "MQTT state topic")
	flagHTTPListen := fs.String("http-listen", "", "HTTP status listen address")
	flagResetPin := fs.String("reset-pin", "", "GPIO of the maintenance reset button")
	flagDebug := fs.Bool("debug", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if !math.IsNaN(*flagKnown) {
		cfg.KnownResistance = *flagKnown
	}
	if *flagFullScale != -1 {
		cfg.FullScale = *flagFullScale
	}
	if !math.IsNaN(*flagVRef) {
		cfg.ReferenceVoltage = *flagVRef
	}
	if *flagSamples != -1 {
		cfg.SampleCount = *flagSamples
	}
	if *flagSampleDelay != -1 {
		cfg.SampleDelayMs = *flagSampleDelay
	}
	if *flagInterval != -1 {
		cfg.IntervalMs = *flagInterval
	}
	if *flagSensorType != "" {
		cfg.SensorType = *flagSensorType
	}
	if *flagI2CBus != "" {
		cfg.ADC.I2CBus = *flagI2CBus
	}
	if *flagI2CAddStr != "" {
		v, err := parseIntOrHex(*flagI2CAddStr)
		if err != nil {
			return cfg, fmt.Errorf("i2c-address: %w", err)
		}
		cfg.ADC.I2CAddress = v
	}
	if *flagChannel != -1 {
		cfg.ADC.Channel = *flagChannel
	}
	if !math.IsNaN(*flagSimR) {
		cfg.Simulation.Resistance = *flagSimR
	}
	if *flagOutputs != "" {
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: strings.ToLower(p)})
		}
		cfg.Outputs = outs
	}
	// map mqtt flags into every mqtt output (create one if missing)
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" {
		apply := func(m *MQTTConfig) {
			if *flagMQTTServer != "" {
				m.Server = *flagMQTTServer
			}
			if *flagMQTTUser != "" {
				m.Username = *flagMQTTUser
			}
			if *flagMQTTPass != "" {
				m.Password = *flagMQTTPass
			}
			if *flagClientID != "" {
				m.ClientID = *flagClientID
			}
			if *flagTopic != "" {
				m.StateTopic = *flagTopic
			}
		}
		applied := false
		for i := range cfg.Outputs {
			if cfg.Outputs[i].Type == OutputMQTT {
				if cfg.Outputs[i].MQTT == nil {
					cfg.Outputs[i].MQTT = &MQTTConfig{}
				}
				apply(cfg.Outputs[i].MQTT)
				applied = true
			}
		}
		if !applied {
			out := OutputConfig{Type: OutputMQTT, MQTT: &MQTTConfig{}}
			apply(out.MQTT)
			cfg.Outputs = append(cfg.Outputs, out)
		}
	}
	if *flagHTTPListen != "" {
		applied := false
		for i := range cfg.Outputs {
			if cfg.Outputs[i].Type == OutputHTTP {
				cfg.Outputs[i].HTTP = &HTTPConfig{Listen: *flagHTTPListen}
				applied = true
			}
		}
		if !applied {
			cfg.Outputs = append(cfg.Outputs, OutputConfig{Type: OutputHTTP, HTTP: &HTTPConfig{Listen: *flagHTTPListen}})
		}
	}
	if *flagOutputIntervals != "" {
		intervals, err := parseIntervals(*flagOutputIntervals)
		if err != nil {
			return cfg, fmt.Errorf("output-intervals: %w", err)
		}
		for i := range cfg.Outputs {
			if v, ok := intervals[cfg.Outputs[i].Type]; ok {
				cfg.Outputs[i].IntervalMs = v
			}
		}
	}
	if *flagResetPin != "" {
		cfg.Reset.Pin = *flagResetPin
	}
	if *flagDebug {
		cfg.Log.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the values the measurement pipeline relies on.
func (c Config) Validate() error {
	if c.SampleCount <= 0 {
		return errors.New("sample-count must be > 0")
	}
	if c.FullScale <= 0 {
		return errors.New("full-scale must be > 0")
	}
	if c.KnownResistance <= 0 {
		return errors.New("known-resistance must be > 0")
	}
	if c.SampleDelayMs < 0 || c.IntervalMs < 0 {
		return errors.New("delays must be >= 0")
	}
	switch c.SensorType {
	case SensorReal, SensorSimulation:
	default:
		return fmt.Errorf("unknown sensor type %q", c.SensorType)
	}
	for _, o := range c.Outputs {
		switch o.Type {
		case OutputConsole, OutputDisplay, OutputLightStrip, OutputMQTT, OutputHTTP:
		default:
			return fmt.Errorf("unknown output type %q", o.Type)
		}
		if o.IntervalMs < 0 {
			return fmt.Errorf("%s: interval must be >= 0", o.Type)
		}
		if o.IntervalMs > 0 && o.Type != OutputMQTT && o.Type != OutputHTTP {
			return fmt.Errorf("%s: only mqtt and http outputs can be throttled", o.Type)
		}
	}
	return nil
}

func parseIntOrHex(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	return v, err
}

// parseIntervals reads "type=ms" pairs.
func parseIntervals(s string) (map[string]int, error) {
	out := map[string]int{}
	for _, p := range parseCSV(s) {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("expected type=ms, got %q", p)
		}
		v, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kv[0], err)
		}
		out[strings.ToLower(strings.TrimSpace(kv[0]))] = v
	}
	return out, nil
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
