// Command pilot-guestd runs inside the virtual machine and executes desktop,
// shell, and file commands sent by the host over the framed socket protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/voocel/pilot/config"
	"github.com/voocel/pilot/guest"
	"github.com/voocel/pilot/guest/actions"
	"github.com/voocel/pilot/logx"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")

	// Resolve config with precedence: defaults < file < env < args.
	var cfg config.GuestConfig
	cfg.SetDefaults()
	cfg.ApplyEnv()
	if path := configFlagValue(); path != "" {
		cfg.ConfigFile = path
	}
	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logx.Log.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("load config")
		}
		cfg.ApplyEnv()
	}
	cfg.BindFlagsFromCurrent()
	flag.Parse()

	if *showVersion {
		fmt.Printf("pilot-guestd version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return
	}

	logx.SetLevel(cfg.LogLevel)

	d := guest.NewDispatcher()
	actions.Register(d, actions.Options{
		Shell:          cfg.Shell,
		WorkDir:        cfg.WorkDir,
		CommandTimeout: cfg.CommandTimeout,
		MaxTextBytes:   cfg.MaxTextBytes,
		MaxImageBytes:  cfg.MaxImageBytes,
		OpenCommand:    cfg.OpenCommand,
	})

	srv := guest.NewServer(guest.Config{
		Endpoint:     cfg.Endpoint,
		BindAttempts: cfg.BindAttempts,
		BindBackoff:  cfg.BindBackoff,
	}, d)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logx.Log.Info().
		Str("endpoint", cfg.Endpoint).
		Str("shell", cfg.Shell).
		Str("version", version).
		Msg("guest agent starting")

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logx.Log.Fatal().Err(err).Msg("guest agent error")
	}
	logx.Log.Info().Msg("guest agent stopped")
}

// configFlagValue scans os.Args for -config so the file can load before the
// other flags bind their defaults.
func configFlagValue() string {
	for i := 1; i < len(os.Args); i++ {
		a := strings.TrimPrefix(strings.TrimPrefix(os.Args[i], "-"), "-")
		if a == "config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "config="); ok {
			return v
		}
	}
	return ""
}
