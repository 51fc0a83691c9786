package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"cadence/internal/config"
	"cadence/internal/convert"
	"cadence/internal/history"
	"cadence/internal/library"
	"cadence/internal/logging"
	"cadence/internal/metadata"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger builds the run logger with console output on the command's stderr.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, io.Closer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	opts := logging.OptionsFromConfig(cfg)
	opts.Console = cmd.ErrOrStderr()
	return logging.New(opts)
}

func (c *commandContext) metadataStore() metadata.Store {
	cfg := c.config
	return metadata.NewDefaultDispatcher(cfg.Metadata.FFprobeBinary, cfg.Metadata.FFmpegBinary)
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.HistoryPath())
}

// historyFor opens the history store for a real run. Simulated runs record
// nothing and get a nil store.
func (c *commandContext) historyFor(simulate bool) (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if simulate || cfg.Conversion.Simulate {
		return nil, nil
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// coordinatorOptions returns the options every command-built coordinator
// shares: logger, chunk size and, when store is set, history recording.
func (c *commandContext) coordinatorOptions(logger *slog.Logger, store *history.Store) []convert.Option {
	opts := []convert.Option{
		convert.WithLogger(logger),
		convert.WithChunkSize(c.config.Conversion.ChunkSize),
	}
	if store != nil {
		opts = append(opts, convert.WithReporter(store.Reporter(logger)))
	}
	return opts
}

func (c *commandContext) requestTemplate(simulate bool) convert.Request {
	req := library.RequestTemplate(c.config)
	req.Simulate = req.Simulate || simulate
	return req
}

// onInterrupt derives a context that ends on SIGINT or SIGTERM. When a signal
// arrives, cancel is called so the running conversion stops cooperatively.
func onInterrupt(parent context.Context, cancel func()) (context.Context, func()) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			if parent.Err() == nil {
				cancel()
			}
		case <-done:
		}
	}()
	return ctx, func() {
		close(done)
		<-exited
		stop()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
