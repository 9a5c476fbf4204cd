package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AppLogger tags the configured global logger with app.
func AppLogger(app string) zerolog.Logger {
	return log.Logger.With().Str("app", app).Logger()
}
