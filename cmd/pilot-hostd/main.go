// Command pilot-hostd runs on the host. It keeps one connection to the guest
// agent, exposes the operator HTTP API, and drives model tool calls through
// the policy and approval gates.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voocel/pilot/activity"
	"github.com/voocel/pilot/api"
	"github.com/voocel/pilot/config"
	"github.com/voocel/pilot/executor"
	"github.com/voocel/pilot/hitl"
	"github.com/voocel/pilot/llm"
	"github.com/voocel/pilot/logx"
	"github.com/voocel/pilot/metrics"
	"github.com/voocel/pilot/policy"
	"github.com/voocel/pilot/remote"
	"github.com/voocel/pilot/runner"
	"github.com/voocel/pilot/schema"
	"github.com/voocel/pilot/secret"
	"github.com/voocel/pilot/tools"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

const activityCapacity = 1024

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")

	// Resolve config with precedence: defaults < file < env < args.
	var cfg config.HostConfig
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
		fmt.Printf("pilot-hostd version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return
	}

	logx.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := activity.NewLog(activityCapacity)
	defer feed.Close()

	center := hitl.NewCenter()
	center.OnChange = metrics.SetPendingInteractions

	store := secret.NewStore()
	for _, cred := range cfg.Credentials {
		store.Put(secret.Credential{Site: cred.Site, Username: cred.Username, Password: cred.Password})
	}
	if n := len(cfg.Credentials); n > 0 {
		logx.Log.Info().Int("count", n).Msg("credentials loaded")
	}

	policySource := policy.DefaultPolicy
	if cfg.PolicyFile != "" {
		b, err := os.ReadFile(cfg.PolicyFile)
		if err != nil {
			logx.Log.Fatal().Err(err).Str("path", cfg.PolicyFile).Msg("read policy")
		}
		policySource = string(b)
	}
	gate, err := policy.NewEngine(ctx, policySource)
	if err != nil {
		logx.Log.Fatal().Err(err).Msg("compile policy")
	}

	slot := &remote.Slot{}
	guestClient := remote.NewClient(slot)
	go maintainGuest(ctx, slot, guestClient, feed, cfg.GuestEndpoint, cfg.GuestDialRetry)

	todo := tools.NewTodoTool()
	registry := tools.NewRegistry()
	registry.Register(tools.NewAskQuestionTool(center))
	registry.Register(tools.NewAskChoiceTool(center))
	registry.Register(tools.NewInterventionTool(center))
	registry.Register(tools.NewCredentialsTool(store))
	registry.Register(todo)
	registry.Register(tools.NewReadWebpageTool())
	registry.Register(tools.NewWebSearchToolURL(cfg.SearchURL))
	registry.Register(tools.NewLocationTool())

	exec := executor.New(executor.Options{
		Guest:           guestClient,
		Host:            registry,
		Policy:          gate,
		Center:          center,
		Secrets:         store,
		Activity:        feed,
		CommandApproval: !cfg.AutoApproveCommands,
		CommandTimeout:  cfg.CommandTimeout,
	})

	var driver api.RunDriver
	if cfg.ModelAPIKey == "" {
		logx.Log.Warn().Msg("no model API key configured; /api/v1/run is disabled")
	} else {
		model, err := llm.NewLiteLLM(llm.Config{
			Model:       cfg.Model,
			APIKey:      cfg.ModelAPIKey,
			BaseURL:     cfg.ModelBaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			logx.Log.Fatal().Err(err).Msg("configure model")
		}
		agent := runner.New(runner.Config{
			Model:        model,
			Executor:     exec,
			SystemPrompt: cfg.SystemPrompt,
			MaxTurns:     cfg.MaxTurns,
			HistoryLimit: cfg.HistoryLimit,
		})
		driver = agent
		if cfg.TranscriptDir != "" {
			driver = restoreTranscript(ctx, agent, cfg.TranscriptDir)
		}
	}

	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	metrics.SetBuildInfo(version, buildSHA, buildDate)

	apiOpts := api.Options{
		Center:   center,
		Activity: feed,
		Secrets:  store,
		Guest:    guestClient,
		Todos:    todo,
		APIKey:   cfg.APIKey,
		Metrics:  reg,
		Version:  version,
	}
	if driver != nil {
		apiOpts.Runner = driver
	}
	handler := api.New(apiOpts)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			logx.Log.Error().Err(err).Msg("server shutdown")
		}
	}()

	if cfg.APIKey != "" {
		logx.Log.Info().Msg("API key auth enabled")
	}
	if cfg.AutoApproveCommands {
		logx.Log.Warn().Msg("shell commands will run without human approval")
	}
	logx.Log.Info().
		Str("addr", cfg.ListenAddr).
		Str("guest_endpoint", cfg.GuestEndpoint).
		Str("model", cfg.Model).
		Str("version", version).
		Msg("host daemon starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Log.Fatal().Err(err).Msg("server error")
	}
	logx.Log.Info().Msg("host daemon stopped")
}

const transcriptSession = "default"

// restoreTranscript loads the saved conversation into agent, if one exists,
// and returns a driver that writes the transcript back after every run.
func restoreTranscript(ctx context.Context, agent *runner.Runner, dir string) api.RunDriver {
	ts, err := runner.NewFileTranscripts(dir)
	if err != nil {
		logx.Log.Fatal().Err(err).Str("dir", dir).Msg("open transcript store")
	}
	saved, err := ts.Load(ctx, transcriptSession)
	switch {
	case err == nil:
		agent.Restore(saved.Messages)
		logx.Log.Info().Int("messages", len(saved.Messages)).Msg("transcript restored")
	case !errors.Is(err, runner.ErrTranscriptNotFound):
		logx.Log.Warn().Err(err).Msg("transcript load failed; starting fresh")
	}
	return &persistingRunner{agent: agent, store: ts}
}

// persistingRunner saves the conversation after every run so a host restart
// picks the session back up where it stopped.
type persistingRunner struct {
	agent *runner.Runner
	store runner.TranscriptStore
}

func (p *persistingRunner) Run(ctx context.Context, input string) (string, error) {
	answer, err := p.agent.Run(ctx, input)
	t := runner.Transcript{
		SessionID: transcriptSession,
		Messages:  p.agent.History(),
		UpdatedAt: time.Now(),
	}
	if serr := p.store.Save(context.Background(), t); serr != nil {
		logx.Log.Warn().Err(serr).Msg("transcript save failed")
	}
	return answer, err
}

// maintainGuest keeps one live connection to the guest agent, redialing with
// a fixed pause until ctx ends. Each attachment is probed with check_health
// so operators see the guest's protocol version in the log.
func maintainGuest(ctx context.Context, slot *remote.Slot, client *remote.Client, feed *activity.Log, endpoint string, retry time.Duration) {
	for ctx.Err() == nil {
		conn, err := remote.Dial(ctx, endpoint)
		if err != nil {
			logx.Log.Debug().Err(err).Str("endpoint", endpoint).Msg("guest dial failed")
			if !sleep(ctx, retry) {
				return
			}
			continue
		}

		slot.Swap(conn)
		feed.Append(activity.Entry{Kind: activity.KindGuestAttached, Summary: "guest connected"})
		probeGuest(ctx, client, endpoint)

		select {
		case <-ctx.Done():
			slot.Clear(conn)
			return
		case <-conn.Done():
			slot.Clear(conn)
			feed.Append(activity.Entry{Kind: activity.KindGuestDetached, Summary: "guest disconnected"})
			logx.Log.Warn().Str("endpoint", endpoint).Msg("guest disconnected; redialing")
		}

		if !sleep(ctx, retry) {
			return
		}
	}
}

func probeGuest(ctx context.Context, client *remote.Client, endpoint string) {
	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := client.CheckHealth(hctx)
	if err != nil {
		logx.Log.Warn().Err(err).Msg("guest health probe failed")
		return
	}
	ev := logx.Log.Info().
		Str("endpoint", endpoint).
		Str("hostname", health.Hostname).
		Int("protocol", health.ProtocolVersion)
	if health.ProtocolVersion != schema.ProtocolVersion {
		ev = logx.Log.Warn().
			Str("endpoint", endpoint).
			Int("protocol", health.ProtocolVersion).
			Int("expected", schema.ProtocolVersion)
	}
	ev.Msg("guest connected")
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
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
