package config

const (
	defaultPlexURL        = "http://localhost:32400"
	defaultLibrary        = "Music"
	defaultTimeoutSeconds = 15

	defaultStateDir = "~/.local/share/plexdance"
	defaultLogDir   = "~/.local/share/plexdance/logs"

	defaultPollIntervalSeconds = 5
	defaultMaxPollAttempts     = 60

	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// Default returns a configuration populated with default values.
func Default() Config {
	return Config{
		Plex: Plex{
			URL:            defaultPlexURL,
			Library:        defaultLibrary,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Dance: Dance{
			PollIntervalSeconds: defaultPollIntervalSeconds,
			MaxPollAttempts:     defaultMaxPollAttempts,
			TriggerRescan:       true,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
