package server

import (
	"time"

	"github.com/raysh454/shiro/internal/app"
	"github.com/raysh454/shiro/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address for the API server (CLI uses
	// the engine in-process and does not require the network).
	ListenAddr string

	// StatsInterval is how often /ws/stats pushes a fresh snapshot.
	StatsInterval time.Duration

	// AppConfig configures the engine when the server builds its own.
	AppConfig *app.Config

	// Logger overrides the default stdout logger.
	Logger logging.Logger
}
