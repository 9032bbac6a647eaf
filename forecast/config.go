package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sartorproj/salescast/gridsearch"
	"github.com/sartorproj/salescast/stats"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid forecast configuration")

// Config holds configuration for an Engine.
type Config struct {
	Horizon         int     // back-test and future length in months (default: 12)
	MinTrainLength  int     // shortest training part accepted (default: 12)
	MaxDifferencing int     // upper bound on d (default: 2)
	Alpha           float64 // stationarity significance level (default: 0.05)

	// Search configures the candidate grid. Its Horizon is overridden by
	// Horizon above.
	Search *gridsearch.Config

	CategoryWorkers int           // categories processed at once (default: 1)
	CategoryTimeout time.Duration // budget per category, none when 0
	CacheTTL        time.Duration // result cache lifetime, disabled when 0

	// Progress, when set, is called after each category finishes. Calls
	// are serialized.
	Progress func(category string, done, total int)

	Logger *slog.Logger // slog.Default() when nil
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Horizon:         12,
		MinTrainLength:  12,
		MaxDifferencing: 2,
		Alpha:           stats.DefaultAlpha,
		Search:          gridsearch.DefaultConfig(),
		CategoryWorkers: 1,
	}
}

// Validate reports whether the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.Horizon < 1:
		return fmt.Errorf("%w: horizon must be positive", ErrInvalidConfig)
	case c.MinTrainLength < 1:
		return fmt.Errorf("%w: minimum training length must be positive", ErrInvalidConfig)
	case c.MaxDifferencing < 0:
		return fmt.Errorf("%w: negative maximum differencing", ErrInvalidConfig)
	case c.Alpha <= 0 || c.Alpha >= 1:
		return fmt.Errorf("%w: alpha must be in (0, 1)", ErrInvalidConfig)
	case c.CategoryTimeout < 0 || c.CacheTTL < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	if c.Search != nil {
		s := *c.Search
		s.Horizon = c.Horizon
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}
