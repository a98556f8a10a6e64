package manager

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth    = 8
	defaultMaxWait          = 30 * time.Second
	defaultProgressInterval = time.Second
	defaultConnectTimeout   = 30 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Asset   Asset
	Runtime Runtime
	Context ContextParams

	// HTTPClient fetches the asset. The default applies connect and
	// response-header timeouts but no overall deadline.
	HTTPClient       *http.Client
	ProgressInterval time.Duration

	MaxQueueDepth int
	MaxWait       time.Duration

	Publisher  EventPublisher
	Logger     *zerolog.Logger
	Registerer prometheus.Registerer
}

// New constructs a Manager. Nothing is loaded until EnsureReady.
func New(cfg ManagerConfig) *Manager {
	if cfg.Asset.Filename == "" {
		cfg.Asset = DefaultAsset(cfg.Asset.Dir)
	}
	if cfg.Runtime == nil {
		cfg.Runtime = NewLlamaRuntime()
	}
	if cfg.Context == (ContextParams{}) {
		cfg.Context = DefaultContextParams()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaultHTTPClient()
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = defaultProgressInterval
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	return &Manager{
		state:            StateAbsent,
		asset:            cfg.Asset,
		runtime:          cfg.Runtime,
		params:           cfg.Context,
		client:           cfg.HTTPClient,
		progressInterval: cfg.ProgressInterval,
		genCh:            make(chan struct{}, 1),
		queueCh:          make(chan struct{}, cfg.MaxQueueDepth),
		maxWait:          cfg.MaxWait,
		publisher:        cfg.Publisher,
		log:              log,
		metrics:          newMetrics(cfg.Registerer),
		startTime:        time.Now(),
	}
}

func defaultHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: defaultConnectTimeout,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{Transport: tr}
}
