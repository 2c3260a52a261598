package pose

import "time"

// Config holds the tunable parameters of the repetition matcher.
type Config struct {
	// Threshold is the mean squared pixel distance below which a frame matches
	// a reference pose. The comparison is strict.
	Threshold float64

	// Timeout is the base window allowed between two matches.
	Timeout time.Duration

	// TimeoutPunish shrinks the window by this much per multiplier step, so
	// long streaks get less time.
	TimeoutPunish time.Duration

	// MinTimeout is the floor for the shrinking window.
	MinTimeout time.Duration
}

// DefaultConfig returns the standard game tuning.
func DefaultConfig() Config {
	return Config{
		Threshold:     2500,
		Timeout:       3000 * time.Millisecond,
		TimeoutPunish: 10 * time.Millisecond,
		MinTimeout:    250 * time.Millisecond,
	}
}

// RelaxedConfig returns a more forgiving tuning for beginners or noisy cameras.
func RelaxedConfig() Config {
	cfg := DefaultConfig()
	cfg.Threshold = 4000
	cfg.Timeout = 5000 * time.Millisecond
	cfg.TimeoutPunish = 5 * time.Millisecond
	return cfg
}

// AllowedWindow returns the time allowed between matches at the given
// multiplier, never less than MinTimeout.
func (c Config) AllowedWindow(multiplier int) time.Duration {
	allowed := c.Timeout - c.TimeoutPunish*time.Duration(multiplier)
	floor := c.MinTimeout
	if floor <= 0 {
		floor = time.Millisecond
	}
	if allowed < floor {
		return floor
	}
	return allowed
}
