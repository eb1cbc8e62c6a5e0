// Command plexsessions prints the active sessions of the configured Plex
// server and the track plexpresence would show for them.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/llehouerou/plexpresence/internal/config"
	"github.com/llehouerou/plexpresence/internal/plex"
	"github.com/llehouerou/plexpresence/internal/presence"
)

func main() {
	var (
		configPath string
		asJSON     bool
		watch      time.Duration
	)
	flag.StringVarP(&configPath, "config", "c", "", "path to a config file")
	flag.BoolVar(&asJSON, "json", false, "print raw sessions as JSON")
	flag.DurationVarP(&watch, "watch", "w", 0, "poll again at this interval until interrupted")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, configPath, asJSON, watch); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, asJSON bool, watch time.Duration) error {
	config.LoadEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	client := plex.NewClient(plex.DefaultURL, plex.StableClientID())
	account, err := client.Login(ctx, plex.Credentials{
		Username: cfg.Plex.Username,
		Password: cfg.Plex.Password,
		Token:    cfg.Plex.Token,
	})
	if err != nil {
		return fmt.Errorf("plex login: %w", err)
	}
	server, err := account.ConnectByName(ctx, cfg.Plex.ServerName)
	if err != nil {
		return fmt.Errorf("plex server: %w", err)
	}
	fmt.Printf("Server %s at %s\n", server.Name, server.URL())

	for {
		sessions, err := server.Sessions(ctx)
		if err != nil {
			return err
		}
		if err := printSessions(os.Stdout, sessions, asJSON); err != nil {
			return err
		}

		if watch <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watch):
		}
	}
}

func printSessions(w io.Writer, sessions []plex.Session, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}

	fmt.Fprintf(w, "%d session(s)\n", len(sessions))
	for i, s := range sessions {
		fmt.Fprintf(w, "  [%d] %s %q (%s on %s, user %s)\n",
			i, s.Type, s.Title, s.Player.State, s.Player.Title, s.User.Title)
	}

	if track, ok := presence.FirstPlayingTrack(sessions); ok {
		state, details := track.StatusLines()
		fmt.Fprintf(w, "Presence: %s | %s\n", state, details)
	} else {
		fmt.Fprintln(w, "Presence: cleared")
	}
	return nil
}
