package config

const (
	defaultDataDir            = "~/.local/share/docpipe"
	defaultPollInterval       = 2
	defaultErrorRetryInterval = 5
	defaultWatchInterval      = 1
	defaultMaxAttempts        = 5
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultNotifyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			WatchInterval:      defaultWatchInterval,
			MaxAttempts:        defaultMaxAttempts,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Decisions:      true,
			Failures:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
