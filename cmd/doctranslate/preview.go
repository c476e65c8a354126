package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"doc-translator/internal/platform"
	"doc-translator/internal/preview"
	"doc-translator/internal/resource"
	"doc-translator/internal/storage"
)

func newPreviewCmd(c *cli) *cobra.Command {
	var noOpen bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Open the result handed off by \"translate --handoff\"",
		Long: `preview consumes the result left by "translate --handoff", writes it to a
temporary file and opens it with the system viewer. The handoff is cleared
whether or not it could be read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPreview(cmd.Context(), noOpen)
		},
	}

	cmd.Flags().BoolVar(&noOpen, "no-open", false, "print the file path instead of opening it")
	return cmd
}

func (c *cli) runPreview(ctx context.Context, noOpen bool) error {
	store, err := storage.NewFilesystem(c.sessionDir, c.logger)
	if err != nil {
		return err
	}

	registry := resource.NewRegistry(resource.NewDirSaver(previewDir()), c.logger)
	defer registry.RevokeAll()
	session := preview.NewSession(registry, store, c.logger)

	doc, err := session.HandoffIn(ctx)
	if errors.Is(err, preview.ErrHandoffMissing) {
		return fmt.Errorf("no preview available: run \"doctranslate translate --handoff\" first")
	}
	if err != nil {
		return err
	}

	ref, err := session.Open(doc)
	if err != nil {
		return err
	}
	defer session.Close()

	location, err := registry.Download(ctx, ref, doc.Name)
	if err != nil {
		return fmt.Errorf("write preview: %w", err)
	}

	if noOpen {
		fmt.Fprintln(c.out, location)
		return nil
	}
	if err := platform.OpenPath(location); err != nil {
		return fmt.Errorf("open preview: %w", err)
	}
	success(c.out, "Opened %s", location)
	return nil
}

func previewDir() string {
	return filepath.Join(os.TempDir(), "doc-translator", "preview")
}
