package dispatch

import "log/slog"

const (
	// PayloadField is the form field carrying the JSON command.
	PayloadField = "json"

	DefaultMaxPayload int64 = 1 << 20 // 1MB
)

// Option configures a Dispatcher.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	field      string
	maxPayload int64
}

func defaultConfig() config {
	return config{
		logger:     slog.Default(),
		field:      PayloadField,
		maxPayload: DefaultMaxPayload,
	}
}

// WithLogger sets the logger used for request outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxPayload limits the request body size read by ServeHTTP.
func WithMaxPayload(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// WithPayloadField overrides the form field name. Clients built from the
// bundled shim always use PayloadField.
func WithPayloadField(name string) Option {
	return func(c *config) {
		if name != "" {
			c.field = name
		}
	}
}
