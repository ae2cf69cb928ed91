package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codequest-app/codequest/internal/api"
	"github.com/codequest-app/codequest/internal/app/casino"
	"github.com/codequest-app/codequest/internal/app/content"
	"github.com/codequest-app/codequest/internal/app/engagement"
	"github.com/codequest-app/codequest/internal/app/reward"
	"github.com/codequest-app/codequest/internal/app/session"
	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/health"
	"github.com/codequest-app/codequest/internal/infra/backend"
	"github.com/codequest-app/codequest/internal/infra/lock"
	"github.com/codequest-app/codequest/internal/infra/sqlite"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// Daemon is the codequest runtime. It wires together all services.
type Daemon struct {
	Config Config
	Log    *logger.Logger
	Server *api.Server
	cancel context.CancelFunc

	// Storage; exactly one of DB and Backend is set.
	DB      *sqlite.DB
	Backend *backend.Client
	redis   *lock.Redis

	Catalog  *content.Catalog
	Sessions *session.Manager
	Health   *health.Checker

	Levels  *engagement.LevelService
	Streaks *engagement.StreakService
	Daily   *engagement.DailyService
	Tracker *engagement.Tracker
	Shop    *reward.Shop
	Casino  *casino.Table
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	d := &Daemon{Config: cfg, Log: log}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	// Content
	d.Catalog, err = OpenCatalog(cfg.Content, log)
	if err != nil {
		return nil, err
	}

	// Profiles
	var (
		profiles    domain.ProfileStore
		rewards     domain.RewardStore
		completions domain.CompletionStore
		provision   func(context.Context, string) (bool, error)
	)
	switch cfg.Backend.Mode {
	case BackendSupabase:
		client, err := backend.New(backend.Config{
			URL:     cfg.Backend.URL,
			APIKey:  cfg.Backend.APIKey,
			Timeout: cfg.Backend.TimeoutDuration(),
		}, d.accessToken, log)
		if err != nil {
			return nil, fmt.Errorf("backend: %w", err)
		}
		d.Backend = client
		store := backend.NewStore(client)
		profiles, rewards, completions = store, store, store
		d.Sessions = session.NewManager(authenticator{client}, log)
	default:
		db, err := sqlite.Open(codequestHome())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		d.DB = db
		profiles, rewards, completions = db, db, db
		provision = db.EnsureProfile
		d.Sessions = session.NewManager(nil, log)
	}

	// Per-user lock
	var locker domain.Locker = lock.NewMemory()
	if cfg.Lock.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		r, err := lock.NewRedis(ctx, cfg.Lock.RedisURL, lock.RedisConfig{})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("redis lock: %w", err)
		}
		r.SetLogger(log.With("component", "lock").Warn)
		d.redis = r
		locker = r
	}

	// Engagement
	d.Levels = engagement.NewLevelService(profiles)
	d.Streaks = engagement.NewStreakService(profiles)
	d.Daily = engagement.NewDailyService(profiles, locker, engagement.DailyReward{
		XP:     cfg.Rewards.DailyXP,
		Points: cfg.Rewards.DailyPoints,
	})
	d.Tracker = engagement.NewTracker(profiles, completions, locker, engagement.TaskRewards{
		XPPerTier:     cfg.Rewards.TaskXP,
		PointsPerTier: cfg.Rewards.TaskPoints,
	}, log)
	d.Shop = reward.NewShop(d.Catalog, profiles, rewards, locker, log)
	d.Casino = casino.NewTable(profiles, locker, log)

	// Health checker
	deps := health.Deps{
		Content:    d.Catalog,
		ContentDir: cfg.Content.Dir,
		Log:        log,
	}
	if d.DB != nil {
		deps.DB = d.DB
	}
	if d.Backend != nil {
		deps.Backend = d.Backend
	}
	d.Health = health.NewChecker(deps)

	// API server
	srv := api.NewServer(api.Services{
		Catalog:     d.Catalog,
		Profiles:    profiles,
		Completions: completions,
		Levels:      d.Levels,
		Streaks:     d.Streaks,
		Daily:       d.Daily,
		Tracker:     d.Tracker,
		Shop:        d.Shop,
		Casino:      d.Casino,
		Sessions:    d.Sessions,
		Health:      d.Health,
		Provision:   provision,
	}, log)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	if d.Backend != nil {
		srv.RequireToken()
	}
	d.Server = srv

	ok = true
	return d, nil
}

// OpenCatalog loads the manifest from the content directory and builds
// the catalog over it.
func OpenCatalog(cfg ContentConfig, log *logger.Logger) (*content.Catalog, error) {
	provider := content.NewDirProvider(cfg.Dir)
	manifest, err := content.LoadManifest(provider, cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("content manifest: %w", err)
	}
	catalog, err := content.NewCatalog(provider, manifest, log)
	if err != nil {
		return nil, fmt.Errorf("content catalog: %w", err)
	}
	return catalog, nil
}

// accessToken supplies the bearer token for backend calls: the request's
// session when there is one, otherwise the signed-in session.
func (d *Daemon) accessToken(ctx context.Context) (string, error) {
	if s, ok := session.FromContext(ctx); ok && s.AccessToken != "" {
		return s.AccessToken, nil
	}
	s, err := d.Sessions.Current()
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}

// authenticator signs in against the backend's auth endpoint.
type authenticator struct{ client *backend.Client }

func (a authenticator) Login(ctx context.Context, email, password string) (session.Credentials, error) {
	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		return session.Credentials{}, err
	}
	return session.Credentials{
		UserID:      res.User.ID,
		Email:       res.User.Email,
		AccessToken: res.AccessToken,
	}, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Health checker (always runs)
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	d.Log.Info("serving",
		"addr", "http://"+addr,
		"backend", d.Config.Backend.Mode,
		"content", d.Config.Content.Dir,
		"metrics", d.Config.Telemetry.Prometheus,
	)

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.Log != nil {
		d.Log.Sync()
	}
}
