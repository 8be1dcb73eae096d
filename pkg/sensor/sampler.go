package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Reading is the average of one sampling burst.
type Reading struct {
	Average   float64
	StdDev    float64
	Count     int
	Timestamp time.Time
}

// Sampler averages a fixed number of conversions taken Delay apart.
type Sampler struct {
	Source Source
	Count  int
	Delay  time.Duration

	sleep func(time.Duration)
}

func NewSampler(src Source, count int, delay time.Duration) *Sampler {
	return &Sampler{Source: src, Count: count, Delay: delay, sleep: time.Sleep}
}

// Sample calls ReadRaw exactly Count times and returns the arithmetic mean.
func (s *Sampler) Sample(ctx context.Context) (Reading, error) {
	if s.Count <= 0 {
		return Reading{}, errors.New("sample count must be > 0")
	}
	sleep := s.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	xs := make([]float64, s.Count)
	for i := range xs {
		if err := ctx.Err(); err != nil {
			return Reading{}, err
		}
		v, err := s.Source.ReadRaw()
		if err != nil {
			return Reading{}, fmt.Errorf("sample %d: %w", i, err)
		}
		xs[i] = float64(v)
		if s.Delay > 0 {
			sleep(s.Delay)
		}
	}
	r := Reading{Count: s.Count, Timestamp: time.Now()}
	if s.Count == 1 {
		r.Average = xs[0]
		return r, nil
	}
	r.Average, r.StdDev = stat.MeanStdDev(xs, nil)
	return r, nil
}
