package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"doc-translator/internal/config"
	"doc-translator/internal/documents"
	"doc-translator/internal/domain"
	"doc-translator/internal/preview"
	"doc-translator/internal/resource"
	"doc-translator/internal/storage"
	"doc-translator/internal/transfer"
	"doc-translator/internal/workflow"
)

type translateOptions struct {
	outDir   string
	contract string
	handoff  bool
}

func newTranslateCmd(c *cli) *cobra.Command {
	opts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate <file.pdf>",
		Short: "Upload a PDF and save the translated result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTranslate(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "directory for the translated file (default: download_dir setting)")
	cmd.Flags().StringVar(&opts.contract, "contract", "", "transfer contract: two-step or combined (default: contract setting)")
	cmd.Flags().BoolVar(&opts.handoff, "handoff", false, "keep the result for a later preview command")
	return cmd
}

func (c *cli) runTranslate(ctx context.Context, path string, opts *translateOptions) error {
	settings := c.settings
	if opts.contract != "" {
		contract := domain.Contract(opts.contract)
		if contract != domain.ContractTwoStep && contract != domain.ContractCombined {
			return fmt.Errorf("invalid contract %q: must be %s or %s", opts.contract, domain.ContractTwoStep, domain.ContractCombined)
		}
		settings.Contract = contract
	}
	outDir := opts.outDir
	if outDir == "" {
		outDir = settings.DownloadDir
	}

	doc, err := documents.FromFile(path, config.MaxUploadBytes(settings))
	if err != nil {
		return err
	}
	if !doc.IsPDF() {
		return fmt.Errorf("%s is not a PDF (%s)", doc.Name, doc.ContentType)
	}

	client, err := transfer.NewClient(transfer.Options{
		BaseURL:        settings.BaseURL,
		Timeout:        config.RequestTimeout(settings),
		MaxResultBytes: config.MaxResultBytes(settings),
	}, c.logger)
	if err != nil {
		return err
	}

	store, err := storage.NewFilesystem(c.sessionDir, c.logger)
	if err != nil {
		return err
	}

	progress := newPhaseSpinner(c.errOut, "Uploading "+doc.Name+"...")
	registry := resource.NewRegistry(resource.NewDirSaver(outDir), c.logger)
	session := preview.NewSession(registry, store, c.logger)
	controller := workflow.NewController(transfer.NewPipeline(client, settings.Contract, c.logger), registry, session, workflow.Options{
		MaxUploadBytes: config.MaxUploadBytes(settings),
		OnEvent: func(event workflow.Event) {
			if event.Type != workflow.EventTypeStatus {
				return
			}
			switch event.Status {
			case domain.StatusTransferring:
				progress.Update("Uploading " + doc.Name + "...")
			case domain.StatusProcessing:
				progress.Update("Translating " + doc.Name + "...")
			}
		},
	}, c.logger)
	defer controller.Teardown()

	progress.Start()
	started := controller.Select(doc)
	controller.Wait()
	progress.Stop()
	if !started {
		return fmt.Errorf("%s was not accepted", doc.Name)
	}

	snap := controller.Snapshot()
	if snap.Status != domain.StatusComplete {
		failure(c.out, "Translation of %s failed: %s", doc.Name, snap.LastError)
		return errors.New("translation failed")
	}

	pages := ""
	if snap.ResultPageCount > 0 {
		pages = fmt.Sprintf(", %d pages", snap.ResultPageCount)
	}
	success(c.out, "Translated %s (%s%s)", doc.Name, documents.HumanSize(snap.ResultSize), pages)
	if snap.SourcePageCount > 0 {
		encrypted := ""
		if snap.SourceEncrypted {
			encrypted = ", encrypted"
		}
		info(c.out, "Source checked by the service: %d pages%s", snap.SourcePageCount, encrypted)
	}

	location, err := controller.Download(ctx)
	if err != nil {
		return err
	}
	success(c.out, "Saved %s", location)

	if opts.handoff {
		if _, err := controller.HandoffPreview(ctx); err != nil {
			return fmt.Errorf("hand off preview: %w", err)
		}
		info(c.out, "Preview ready: run \"doctranslate preview\"")
	}
	return nil
}
