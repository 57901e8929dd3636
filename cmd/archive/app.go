package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Rrens/chat-archive/internal/archive"
	"github.com/Rrens/chat-archive/internal/auth"
	"github.com/Rrens/chat-archive/internal/authui"
	"github.com/Rrens/chat-archive/internal/backend"
	"github.com/Rrens/chat-archive/internal/config"
	"github.com/Rrens/chat-archive/internal/connection"
	"github.com/Rrens/chat-archive/internal/logging"
	"github.com/Rrens/chat-archive/internal/notify"
	"github.com/Rrens/chat-archive/internal/retry"
	"github.com/Rrens/chat-archive/internal/security"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// app is the client wired for one command invocation
type app struct {
	cfg      *config.ClientConfig
	opts     Options
	logger   zerolog.Logger
	notifier notify.Notifier

	client   *backend.Client
	network  connection.NetworkStatus
	machine  *connection.Machine
	auth     *auth.Manager
	surface  *authui.Surface
	settings *archive.ServiceSettings

	logCloser   io.Closer
	stopNetwork context.CancelFunc
}

func newApp(configPath string, opts Options) (*app, error) {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	closer, err := logging.Setup(cfg.Logging, false)
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}
	logger := log.With().Str("component", "archive").Logger()

	store, err := openSessionStore(cfg.Session)
	if err != nil {
		closer.Close()
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		opts:      opts,
		logger:    logger,
		logCloser: closer,
		notifier: notify.Multi{
			notify.NewConsole(opts.Stderr),
			notify.NewLogNotifier(logger),
		},
	}
	a.client = backend.NewClient(cfg.BackendURL, opts.HTTPClient, store, logging.Component("backend"))

	a.network = opts.Network
	if a.network == nil {
		monitor := connection.NewInterfaceMonitor(cfg.Connection.NetworkPoll, logging.Component("network"))
		ctx, cancel := context.WithCancel(context.Background())
		go monitor.Run(ctx)
		a.network = monitor
		a.stopNetwork = cancel
	}

	prober, err := connection.NewHTTPProber(cfg.ProbeURL, opts.HTTPClient, a.network, logging.Component("prober"))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create prober: %w", err)
	}
	checker := connection.NewHealthChecker(
		a.client,
		a.network,
		cfg.Connection.SessionTimeout,
		cfg.Connection.TableTimeout,
		logging.Component("health"),
	)
	a.machine = connection.NewMachine(connection.Config{
		ProbeTimeout:    cfg.Connection.ProbeTimeout,
		CheckTimeout:    cfg.Connection.CheckTimeout,
		CycleTimeout:    cfg.Connection.CycleTimeout,
		RecheckInterval: cfg.Connection.RecheckInterval,
	}, a.network, prober, checker, logging.Component("connection"))

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.Auth.MaxRetries
	if cfg.Auth.InitialDelay > 0 {
		policy.InitialDelay = cfg.Auth.InitialDelay
	}
	if cfg.Auth.MaxDelay > 0 {
		policy.MaxDelay = cfg.Auth.MaxDelay
	}
	a.auth = auth.NewManager(a.client, a.machine, a.notifier, opts.Opener, auth.Options{
		Policy:      &policy,
		CallTimeout: cfg.Auth.CallTimeout,
		RedirectTo:  cfg.Auth.RedirectTo,
	}, logging.Component("auth"))
	a.surface = authui.NewSurface(a.machine, a.auth, logging.Component("authui"))

	links, err := archive.NewConnectLinks(providerLinks(cfg.Services))
	if err != nil {
		a.close()
		return nil, err
	}
	a.settings = archive.NewServiceSettings(a.client, a.notifier, opts.Opener, links, logging.Component("services"))

	return a, nil
}

func (a *app) close() {
	if a.surface != nil {
		a.surface.Close()
	}
	if a.machine != nil {
		a.machine.Close()
	}
	if a.auth != nil {
		a.auth.Dispose()
	}
	if a.stopNetwork != nil {
		a.stopNetwork()
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

// settle starts connection testing and waits for the first verdict
func (a *app) settle(ctx context.Context) (connection.State, error) {
	a.surface.Open(ctx)
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Connection.CycleTimeout+a.cfg.Connection.ProbeTimeout)
	defer cancel()
	return a.machine.WaitSettled(ctx)
}

// dataError marks the connection down when a data request failed on the
// network, and shows the failure.
func (a *app) dataError(title string, err error) error {
	if retry.IsNetworkError(err) {
		a.machine.MarkDisconnected(connection.MsgNetwork)
		a.notifier.Notify(notify.Error(auth.TitleConnectionError, auth.MsgConnectivity))
		return err
	}
	a.notifier.Notify(notify.Error(title, err.Error()))
	return err
}

func providerLinks(services map[string]config.ServiceLinkConfig) map[string]archive.ProviderLink {
	links := make(map[string]archive.ProviderLink, len(services))
	for name, s := range services {
		links[name] = archive.ProviderLink{
			AuthURL:     s.AuthURL,
			ClientID:    s.ClientID,
			RedirectURL: s.RedirectURL,
			Scopes:      s.Scopes,
		}
	}
	return links
}

// openSessionStore seals the session with the configured key, or with a key
// generated once and kept next to the session file.
func openSessionStore(cfg config.SessionConfig) (backend.SessionStore, error) {
	secret := cfg.Key
	if secret == "" {
		key, err := loadOrCreateKey(cfg.File + ".key")
		if err != nil {
			return nil, err
		}
		secret = key
	}

	enc, err := security.NewEncryptorFromSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("create session encryptor: %w", err)
	}
	return backend.NewFileSessionStore(cfg.File, enc), nil
}

func loadOrCreateKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) > 0 {
		return string(data), nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read session key: %w", err)
	}

	key, err := security.GenerateKey()
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return "", fmt.Errorf("write session key: %w", err)
	}
	return encoded, nil
}
