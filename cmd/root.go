// Package cmd implements the thin command surface over the booking
// orchestrator. Every command prints one JSON result to stdout; all
// diagnostics go to the run log.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/pickup-booker/pkg/booking"
	"github.com/example/pickup-booker/pkg/config"
)

var configPath string

// NewRootCmd builds the pickup-booker command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pickup-booker",
		Short: "Book a parcel collection on the carrier portal by driving a real browser",
		Long: `pickup-booker automates the carrier portal's collection-booking form.

fill populates the form and stops for human review of the screenshot;
submit commits a previously filled form; book does both in one go.
Results are printed as JSON on stdout.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.pickup-booker/config.yaml)")

	root.AddCommand(newFillCmd())
	root.AddCommand(newSubmitCmd())
	root.AddCommand(newBookCmd())
	root.AddCommand(newScreenshotCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newBooker loads config and credentials and wires the orchestrator.
func newBooker() (*booking.Booker, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}
	return booking.New(cfg, creds), nil
}

// printJSON writes the operation result to stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
