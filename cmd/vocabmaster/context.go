package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/logging"
	"github.com/hpn/vocab-master/internal/ui"
	"github.com/hpn/vocab-master/internal/worker"
)

// commandContext holds the persistent flags and what is built from them.
type commandContext struct {
	configFlag string
	envFile    string
	logLevel   string
	logFile    string
	jsonOutput bool

	logger    *slog.Logger
	logCloser io.Closer
}

func newCommandContext() *commandContext {
	return &commandContext{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// setup loads the .env file and builds the logger. It runs before every
// command.
func (c *commandContext) setup(cmd *cobra.Command) error {
	if err := loadDotEnv(c.envFile); err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  c.logLevel,
		File:   c.logFile,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	c.logger = logger
	c.logCloser = closer
	slog.SetDefault(logger)
	return nil
}

func (c *commandContext) close() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
		c.logCloser = nil
	}
}

// configPath returns --config or the per-user default.
func (c *commandContext) configPath() (string, error) {
	if path := strings.TrimSpace(c.configFlag); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

func (c *commandContext) openStore() (*config.Store, error) {
	path, err := c.configPath()
	if err != nil {
		return nil, err
	}
	return config.Open(path, config.WithLogger(c.logger))
}

func (c *commandContext) newWorker() (*worker.Worker, error) {
	path, err := c.configPath()
	if err != nil {
		return nil, err
	}
	return worker.New(path, worker.WithLogger(c.logger)), nil
}

func (c *commandContext) console(cmd *cobra.Command) *ui.Console {
	return ui.NewConsole(cmd.OutOrStdout(), c.jsonOutput)
}

// loadDotEnv loads environment variables from path. If the file does not exist
// it is silently ignored so that .env files remain optional.
func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
