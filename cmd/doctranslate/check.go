package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"doc-translator/internal/diagnostics"
	"doc-translator/internal/domain"
)

func newCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the service address, reachability and download directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := diagnostics.NewChecker().Run(cmd.Context(), c.settings)
			printReport(c, report)
			if report.HasFailures {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

func printReport(c *cli, report domain.DiagnosticReport) {
	for _, item := range report.Items {
		label := color.GreenString("PASS")
		if item.Status == domain.DiagnosticStatusFail {
			label = color.RedString("FAIL")
		}
		fmt.Fprintf(c.out, "%s  %-22s %s\n", label, item.Name, item.Message)
		if item.Hint != "" && item.Status == domain.DiagnosticStatusFail {
			fmt.Fprintf(c.out, "      %s\n", color.YellowString(item.Hint))
		}
	}
}
