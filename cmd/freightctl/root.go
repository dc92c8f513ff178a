package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/apiclient"
	"github.com/mmeshcher/freight-storefront/internal/app"
	"github.com/mmeshcher/freight-storefront/internal/config"
)

type cli struct {
	cfg     config.Config
	envFile string
	logger  *zap.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "freightctl",
		Short:         "Client for the freight transport storefront",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	c.cfg.RegisterFlags(root.PersistentFlags())
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		c.loginCommand(),
		c.registerCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.profileCommand(),
		c.servicesCommand(),
		c.serviceCommand(),
		c.cartCommand(),
		c.ordersCommand(),
		c.serverCommand(),
		c.watchCommand(),
		c.stubServerCommand(),
	)
	return root
}

func (c *cli) setup() error {
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return err
	}
	if err := c.cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(c.cfg.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.logger = logger
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// withApp собирает клиент на время выполнения команды.
func (c *cli) withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	nav := apiclient.NavigatorFunc(func() {
		fmt.Fprintln(cmd.ErrOrStderr(), "session expired, run `freightctl login`")
	})

	a, err := app.New(cmd.Context(), &c.cfg, c.logger, nav)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.logger.Warn("close storage error", zap.Error(err))
		}
	}()

	return fn(a)
}

// failure заменяет ошибку текстом, сохранённым в слайсе, если он есть.
func failure(err error, msg string) error {
	if err == nil {
		return nil
	}
	if msg != "" {
		return errors.New(msg)
	}
	return err
}

func passwordFromEnv(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("FREIGHTCTL_PASSWORD")
}
