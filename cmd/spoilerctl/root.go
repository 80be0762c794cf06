package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/comic-spoiler/spoiler-detector/internal/config"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	once sync.Once
	cfg  *config.Config
	err  error
}

// modelsConfig loads configuration for commands that only run the pipeline.
func (c *commandContext) modelsConfig() (*config.Config, error) {
	c.once.Do(func() {
		c.cfg, c.err = config.LoadForModels(strings.TrimSpace(*c.configFlag))
		if c.err == nil {
			c.applyLogging()
		}
	})
	return c.cfg, c.err
}

func (c *commandContext) serverConfig() (*config.Config, error) {
	cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.applyLogging()
	return cfg, nil
}

func (c *commandContext) applyLogging() {
	logger.SetLevel(c.cfg.LogLevel)
	if *c.verbose {
		logger.SetLevel("debug")
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var verbose bool
	ctx := &commandContext{configFlag: &configFlag, verbose: &verbose}

	rootCmd := &cobra.Command{
		Use:           "spoilerctl",
		Short:         "Detect spoilers in comic panels",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newCheckModelsCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
