package main

import (
	"github.com/spf13/cobra"

	"hypercast/internal/config"
	"hypercast/internal/log"
)

type commandContext struct {
	dataDir   string
	staticDir string
	serverURL string
	apiKey    string

	cfg *config.AppConfig
}

// ensureConfig loads the shared configuration and applies flag overrides.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load([]string{})
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = c.dataDir
	}
	if flags.Changed("static-dir") {
		cfg.StaticDir = c.staticDir
	}
	if flags.Changed("api-key") {
		cfg.APIToken = c.apiKey
	}
	if !flags.Changed("server") {
		c.serverURL = "http://localhost:" + cfg.Port
	}
	log.Configure(log.Config{Level: "warn", Output: cmd.ErrOrStderr(), Service: "hypercastctl"})
	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "hypercastctl",
		Short:         "Inspect and drive a hypercast installation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.dataDir, "data-dir", "data", "Directory holding the episode database")
	rootCmd.PersistentFlags().StringVar(&ctx.staticDir, "static-dir", "static", "Directory holding episode audio")
	rootCmd.PersistentFlags().StringVar(&ctx.serverURL, "server", "", "Base URL of a running hypercast server")
	rootCmd.PersistentFlags().StringVar(&ctx.apiKey, "api-key", "", "API key for submissions (defaults to API_TOKEN)")

	rootCmd.AddCommand(newEpisodesCommand(ctx))
	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newSweepCommand(ctx))

	return rootCmd
}
