package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"doc-translator/internal/config"
	"doc-translator/internal/domain"
	"doc-translator/internal/logging"
	"doc-translator/internal/storage"
)

// cli holds state shared by every subcommand.
type cli struct {
	cfgFile    string
	sessionDir string
	verbose    bool
	noColor    bool

	settings domain.Settings
	logger   *slog.Logger
	out      io.Writer
	errOut   io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "doctranslate",
		Short: "Translate PDF documents with the document translation service",
		Long: `doctranslate uploads a PDF to the translation service, waits for the
translated document, and saves it. With --handoff the result is also kept for
a later "doctranslate preview".`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "settings file (default ~/.doc-translator/settings.toml)")
	root.PersistentFlags().StringVar(&c.sessionDir, "session-dir", storage.DefaultSessionDir(), "directory holding the preview handoff")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newTranslateCmd(c), newPreviewCmd(c), newCheckCmd(c))
	return root
}

// setup loads settings and builds the logger before any subcommand runs.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if c.noColor {
		color.NoColor = true
	}
	c.out = cmd.OutOrStdout()
	c.errOut = cmd.ErrOrStderr()

	path := c.cfgFile
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return fmt.Errorf("resolve settings path: %w", err)
		}
	}

	settings, err := config.NewTOMLStore(path).Load()
	if err != nil {
		return err
	}
	if c.verbose {
		settings.Logging.Level = "debug"
	}

	c.settings = settings
	c.logger = logging.New(settings.Logging, c.errOut)
	c.logger.Debug("settings loaded", "path", path, "base_url", settings.BaseURL, "contract", settings.Contract)
	return nil
}
