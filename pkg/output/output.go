package output

import "github.com/ericogr/ohmmeter/pkg/resistor"

// Output receives every measurement the meter produces.
type Output interface {
	Publish(resistor.Measurement) error
	Close() error
}

// helper constructors are in subpackages
