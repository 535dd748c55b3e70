package matchmaking

import (
	"time"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config carries the service settings, loaded from the environment. Field
// names map to MATCHMAKING_* environment variables.
type Config struct {
	MatchmakingPort                  string
	MatchmakingLogLevel              string
	MatchmakingHeartbeatSeconds      int
	MatchmakingRequestTimeoutSeconds int
	MatchmakingStatsdAddress         string
	MatchmakingTraceEnabled          bool
	MatchmakingProfilerEnabled       bool
}

func defaultConfig() Config {
	return Config{
		MatchmakingPort:                  "4040",
		MatchmakingLogLevel:              "info",
		MatchmakingHeartbeatSeconds:      30,
		MatchmakingRequestTimeoutSeconds: 10,
	}
}

// GetConfig loads the service configuration from the environment, falling
// back to defaults for unset variables.
func GetConfig() (Config, error) {
	cfg := defaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to load config from environment")
	}
	return cfg, nil
}

func (c Config) heartbeat() time.Duration {
	return time.Duration(c.MatchmakingHeartbeatSeconds) * time.Second
}

func (c Config) requestTimeout() time.Duration {
	return time.Duration(c.MatchmakingRequestTimeoutSeconds) * time.Second
}

// applyLogLevel sets the global zerolog level from the configured name.
func (c Config) applyLogLevel() error {
	level, err := zerolog.ParseLevel(c.MatchmakingLogLevel)
	if err != nil {
		return eris.Wrapf(err, "invalid log level %q", c.MatchmakingLogLevel)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
