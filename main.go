package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/llehouerou/plexpresence/internal/config"
	"github.com/llehouerou/plexpresence/internal/lastfm"
	"github.com/llehouerou/plexpresence/internal/logging"
	"github.com/llehouerou/plexpresence/internal/mpris"
	"github.com/llehouerou/plexpresence/internal/notify"
	"github.com/llehouerou/plexpresence/internal/plex"
	"github.com/llehouerou/plexpresence/internal/presence"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		logLevel    string
		lastfmAuth  bool
		showVersion bool
	)
	flag.StringVarP(&configPath, "config", "c", "", "path to a config file")
	flag.StringVar(&logLevel, "log-level", "", "override the configured log level")
	flag.BoolVar(&lastfmAuth, "lastfm-auth", false, "authorize Last.fm and print a session key")
	flag.BoolVarP(&showVersion, "version", "v", false, "print the version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("plexpresence", version)
		return 0
	}

	config.LoadEnv()
	cfg, err := config.Load(configPath)
	if errors.Is(err, config.ErrNoConfig) {
		path, werr := config.WriteTemplate()
		if werr != nil {
			fmt.Fprintf(os.Stderr, "Error writing config template: %v\n", werr)
			return 1
		}
		fmt.Printf("Config template written to %s\nFill in your Plex details and restart.\n", path)
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if lastfmAuth {
		if err := authorizeLastfm(cfg, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config %s:\n%v\n", config.Path(), err)
		return 1
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runDaemon(ctx, cfg, logger); err != nil {
		logger.Error("plexpresence stopped", zap.Error(err))
		return 1
	}
	return 0
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	file, err := cfg.LogFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: no log file: %v\n", err)
		file = ""
	}
	return logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       file,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
}

// runDaemon connects to Plex, then runs the publisher and the poller until
// ctx is cancelled or either of them fails.
func runDaemon(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	server, err := connectPlex(ctx, cfg, logger)
	if err != nil {
		return err
	}

	observers, closeObservers := buildObservers(cfg, logger)
	defer closeObservers()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tx, rx := presence.NewChannel()

	publisher := presence.NewPublisher(
		presence.DiscordDialer(cfg.Discord.ClientID),
		rx,
		cfg.PublishInterval(),
		logger.Named("publisher"),
		observers...,
	)
	publisher.OnStateChange(func(c presence.StateChange) {
		logger.Debug("publisher state", zap.Stringer("from", c.Previous), zap.Stringer("to", c.Current))
	})

	published := make(chan error, 1)
	go func() {
		err := publisher.Run(ctx)
		// A dead publisher leaves nothing for the poller to feed.
		cancel()
		published <- err
	}()

	poller := presence.NewPoller(server, tx, cfg.PollingInterval(), logger.Named("poller"))
	pollErr := poller.Run(ctx)
	cancel()
	pubErr := <-published

	if pubErr != nil {
		return fmt.Errorf("publisher: %w", pubErr)
	}
	if pollErr != nil {
		return fmt.Errorf("poller: %w", pollErr)
	}
	logger.Info("shutdown complete")
	return nil
}

func connectPlex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*plex.Server, error) {
	client := plex.NewClient(plex.DefaultURL, plex.StableClientID())

	account, err := client.Login(ctx, plex.Credentials{
		Username: cfg.Plex.Username,
		Password: cfg.Plex.Password,
		Token:    cfg.Plex.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("plex login: %w", err)
	}
	if account.Username != "" {
		logger.Info("signed in to plex", zap.String("user", account.Username))
	}

	server, err := account.ConnectByName(ctx, cfg.Plex.ServerName)
	if err != nil {
		return nil, fmt.Errorf("plex server: %w", err)
	}
	logger.Info("connected to plex server",
		zap.String("name", server.Name),
		zap.String("url", server.URL()),
	)
	return server, nil
}

// buildObservers creates the mirrors enabled in cfg. A mirror that fails
// to start is logged and skipped.
func buildObservers(cfg *config.Config, logger *zap.Logger) ([]presence.Observer, func()) {
	var (
		observers []presence.Observer
		closers   []func() error
	)

	if cfg.Notify.Enabled {
		n, err := notify.New()
		if err != nil {
			logger.Warn("desktop notifications unavailable", zap.Error(err))
		} else {
			observers = append(observers, notify.NewTrackNotifier(n))
		}
	}

	if cfg.Mpris.Enabled {
		m, err := mpris.New(logger.Named("mpris"))
		if err != nil {
			logger.Warn("mpris unavailable", zap.Error(err))
		} else {
			observers = append(observers, m)
			closers = append(closers, m.Close)
		}
	}

	if cfg.HasLastfmConfig() {
		client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
		client.SetSessionKey(cfg.Lastfm.SessionKey)
		observers = append(observers, lastfm.NewNowPlaying(client))
	}

	return observers, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Debug("close mirror", zap.Error(err))
			}
		}
	}
}

// authorizeLastfm runs the desktop auth flow and prints the session key
// to store in the config.
func authorizeLastfm(cfg *config.Config, in io.Reader, out io.Writer) error {
	if cfg.Lastfm.APIKey == "" || cfg.Lastfm.APISecret == "" {
		return errors.New("lastfm: api_key and api_secret must be set in the config")
	}

	client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
	token, err := client.GetToken()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Open this URL and allow access:\n\n  %s\n\nThen press Enter.", client.GetAuthURL(token))
	if _, err := bufio.NewReader(in).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}

	key, err := client.GetSession(token)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nAdd this to the [lastfm] section of %s:\n\n  session_key = %q\n", config.Path(), key)
	return nil
}
