package engine

import (
	"fmt"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position x axis.
	StartPosX uint32 `toml:"start_x"`
	// Window starting position y axis.
	StartPosY uint32 `toml:"start_y"`
	// Window starting width.
	StartWidth uint32 `toml:"width"`
	// Window starting height.
	StartHeight uint32 `toml:"height"`
	// One of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

func (ac *ApplicationConfig) validate() error {
	if ac.StartWidth == 0 || ac.StartHeight == 0 {
		return fmt.Errorf("application: window size %dx%d must be positive", ac.StartWidth, ac.StartHeight)
	}
	if _, err := core.ParseLogLevel(ac.LogLevel); err != nil {
		return fmt.Errorf("application: %w", err)
	}
	return nil
}
