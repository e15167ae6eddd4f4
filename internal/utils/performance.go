package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowStepThreshold is the duration after which a pipeline step is logged at warn level
const SlowStepThreshold = 30 * time.Second

// Timer measures the duration of a pipeline step
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer creates a new timer with the given name
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// Stop stops the timer and logs the duration together with the number of
// items the step processed.
func (t *Timer) Stop(items int) time.Duration {
	duration := time.Since(t.start)

	t.log.Debug().
		Str("operation", t.name).
		Int("items", items).
		Dur("duration_ms", duration).
		Msg("Step completed")

	if duration > SlowStepThreshold {
		t.log.Warn().
			Str("operation", t.name).
			Dur("duration", duration).
			Msg("Slow step detected")
	}

	return duration
}
