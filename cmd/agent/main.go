package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/term"

	"github.com/ejseo87/openai-assistants-2025/internal/config"
	"github.com/ejseo87/openai-assistants-2025/internal/fsops"
	"github.com/ejseo87/openai-assistants-2025/internal/provider"
	"github.com/ejseo87/openai-assistants-2025/internal/render"
	"github.com/ejseo87/openai-assistants-2025/internal/runner"
	"github.com/ejseo87/openai-assistants-2025/memory"
	"github.com/ejseo87/openai-assistants-2025/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		cfg.APIKey = promptAPIKey()
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("%w: set RA_API_KEY or the provider's own variable", provider.ErrMissingAPIKey)
	}
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	rt, err := provider.New(cfg, nil, logger)
	if err != nil {
		return err
	}
	sandbox, err := fsops.New(cfg.ExportRoot)
	if err != nil {
		return fmt.Errorf("export root: %w", err)
	}

	surface := render.NewTerminal(os.Stdout)
	renderer := render.New(surface, render.WithEscaper(render.PlainText))

	reg, err := tools.NewRegistry(tools.Default(tools.Deps{
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		UserAgent:  cfg.UserAgent,
		Offerer:    renderer,
	})...)
	if err != nil {
		return err
	}
	poller := runner.NewPoller(rt, cfg.PollInterval, cfg.PollTimeout, logger)
	bridge := runner.NewBridge(rt, runner.NewExecutor(reg, logger), poller,
		runner.WithMaxToolRounds(cfg.MaxToolRounds),
		runner.WithLogger(logger),
	)
	session := memory.NewSession(rt, poller, bridge, memory.Options{
		AssistantName: cfg.AssistantName,
		Model:         cfg.Model,
		Tools:         reg.Schemas(),
		Logger:        logger,
	})

	// Ctrl-C cancels the turn in flight; at the prompt it exits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var turns turnGuard
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		for sig := range sigch {
			if sig == os.Interrupt && turns.interrupt() {
				continue
			}
			fmt.Println("\nExiting...")
			cancel()
			return
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(nil, 1<<20)
	inputCh := make(chan string)
	go func() {
		for scanner.Scan() {
			inputCh <- scanner.Text()
		}
		close(inputCh)
	}()

	cli := &repl{
		out:       os.Stdout,
		surface:   surface,
		downloads: renderer,
		history:   session,
		sandbox:   sandbox,
	}
	fmt.Printf("Chat with the %s on %s (/help for commands, Ctrl-C to quit)\n", cfg.AssistantName, cfg.Provider)

outer:
	for {
		surface.Prompt()
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			break outer
		case line, ok = <-inputCh:
			if !ok {
				break outer
			}
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/"):
			if cli.command(ctx, line) {
				break outer
			}
			continue
		}

		turnCtx, done := turns.begin(ctx)
		r, err := session.Ask(turnCtx, line, renderer)
		done()
		renderer.EndTurn()
		surface.EndLine()
		switch {
		case err == nil:
			logger.Debug("turn finished", "run_id", r.ID, "status", r.Status)
		case errors.Is(err, runner.ErrRemoteRunFailed), errors.Is(err, runner.ErrTooManyToolRounds):
			// already shown by the renderer
		case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			surface.Notify(render.NoticeInfo, "turn cancelled")
		default:
			surface.Notify(render.NoticeError, err.Error())
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("stdin read error", "err", err)
	}
	return nil
}

// promptAPIKey reads a key without echo when stdin is a terminal.
func promptAPIKey() string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ""
	}
	fmt.Print("API key: ")
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// turnGuard holds the cancel func of the turn in flight, if any.
type turnGuard struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (g *turnGuard) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
	return ctx, func() {
		g.mu.Lock()
		g.cancel = nil
		g.mu.Unlock()
		cancel()
	}
}

// interrupt cancels the current turn and reports whether there was one.
func (g *turnGuard) interrupt() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel == nil {
		return false
	}
	g.cancel()
	g.cancel = nil
	return true
}
