package sensor

import (
	"fmt"
	"math"
	"time"

	"github.com/ericogr/ohmmeter/pkg/config"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01
	pgaFS         = 4.096
)

// ADS1115Source reads the divider midpoint through an ADS1115 and rescales
// the result so that the supply voltage maps to the configured full scale.
type ADS1115Source struct {
	dev        *i2c.Dev
	bus        i2c.BusCloser
	channel    int
	sampleRate int
	vref       float64
	fullScale  int
	msb, lsb   byte
}

func NewADS1115Source(cfg config.Config) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.ADC.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	s := &ADS1115Source{
		dev:        &i2c.Dev{Addr: uint16(cfg.ADC.I2CAddress), Bus: bus},
		bus:        bus,
		channel:    cfg.ADC.Channel,
		sampleRate: cfg.ADC.SampleRate,
		vref:       cfg.ReferenceVoltage,
		fullScale:  cfg.FullScale,
	}
	if s.sampleRate <= 0 {
		s.sampleRate = 128
	}
	s.msb, s.lsb, err = s.configForChannel(s.channel, s.sampleRate)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	return s, nil
}

func (s *ADS1115Source) Close() error {
	if s.bus != nil {
		return s.bus.Close()
	}
	return nil
}

func (s *ADS1115Source) ReadRaw() (int, error) {
	if err := s.dev.Tx([]byte{pointerConfig, s.msb, s.lsb}, nil); err != nil {
		return 0, fmt.Errorf("write config: %w", err)
	}
	// wait for conversion (simple sleep)
	delayUs := 1e6/float64(s.sampleRate) + 100
	time.Sleep(time.Duration(delayUs) * time.Microsecond)
	readBuf := make([]byte, 2)
	if err := s.dev.Tx([]byte{pointerConv}, readBuf); err != nil {
		return 0, fmt.Errorf("read conv: %w", err)
	}
	raw := int16(readBuf[0])<<8 | int16(readBuf[1])
	return scaleCode(raw, s.vref, s.fullScale), nil
}

// scaleCode converts a signed ADS1115 conversion into [0, fullScale] where
// fullScale corresponds to vref volts.
func scaleCode(raw int16, vref float64, fullScale int) int {
	volts := float64(raw) * pgaFS / 32768.0
	code := int(math.Round(volts / vref * float64(fullScale)))
	if code < 0 {
		return 0
	}
	if code > fullScale {
		return fullScale
	}
	return code
}

func (s *ADS1115Source) configForChannel(channel, sampleRate int) (byte, byte, error) {
	var mux byte
	switch channel {
	case 0:
		mux = 0x4
	case 1:
		mux = 0x5
	case 2:
		mux = 0x6
	case 3:
		mux = 0x7
	default:
		return 0, 0, fmt.Errorf("invalid channel %d", channel)
	}
	// PGA: use ±4.096V -> bits 001
	pga := byte(0x1)
	var dr byte
	switch sampleRate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 128:
		dr = 0x4
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		dr = 0x4
	}
	var config uint16 = 0x8000 // OS = 1 (start single conversion)
	config |= uint16(mux) << 12
	config |= uint16(pga) << 9
	config |= 1 << 8 // single-shot mode
	config |= uint16(dr) << 5
	// comparator disabled (bits 1:0 = 11)
	config |= 0x3
	return byte(config >> 8), byte(config & 0xFF), nil
}
