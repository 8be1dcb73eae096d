package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/ericogr/ohmmeter/pkg/output"
	"github.com/ericogr/ohmmeter/pkg/resistor"
)

type ConsoleOutput struct{}

func NewConsole() output.Output { return &ConsoleOutput{} }

func (c *ConsoleOutput) Publish(m resistor.Measurement) error {
	fmt.Printf("%s adc=%.0f resistance=%.0f nominal=%s bands=%s\n",
		m.Timestamp.Format(time.RFC3339), m.Average, m.Resistance,
		resistor.FormatOhms(m.Nominal), strings.Join(m.Labels[:], "-"))
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }
