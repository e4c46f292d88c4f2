package app

import (
	"time"

	"github.com/raysh454/shiro/internal/cache"
	"github.com/raysh454/shiro/internal/detector"
	"github.com/raysh454/shiro/internal/history"
	"github.com/raysh454/shiro/internal/perf"
	"github.com/raysh454/shiro/internal/remote"
	"github.com/raysh454/shiro/internal/webclient"
)

// Config aggregates the runtime configuration of every engine component.
// Sub-packages own their defaults; this just collects them in one place so
// main can override from flags.
type Config struct {
	// Cache configuration
	CacheCfg cache.Config

	// ResultTTL is how long analysis results stay cached.
	ResultTTL time.Duration

	// Performance monitor configuration
	PerfCfg perf.Config

	// Detector configuration
	DetectorCfg detector.Config

	// Remote analysis service. Disabled unless RemoteEnabled is set, since
	// most deployments run fully local.
	RemoteEnabled bool
	RemoteCfg     remote.Config

	// WebClient configuration (remote transport)
	WebClientCfg webclient.Config

	// History configuration
	HistoryCfg history.Config
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		CacheCfg:      *cache.DefaultConfig(),
		ResultTTL:     cache.DefaultConfig().DefaultTTL,
		PerfCfg:       *perf.DefaultConfig(),
		DetectorCfg:   *detector.DefaultConfig(),
		RemoteEnabled: false,
		RemoteCfg:     *remote.DefaultConfig(),
		WebClientCfg:  *webclient.DefaultConfig(),
		HistoryCfg:    *history.DefaultConfig(),
	}
}
