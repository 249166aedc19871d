// Package cmd holds the auxiliary CLI commands for working with the
// peripherals outside the server process.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirius3/lednode/internal/logging"
	"github.com/sirius3/lednode/internal/transport"
)

// CreateScanCmd creates the scan command, which runs one BLE discovery
// pass and prints what advertised.
func CreateScanCmd() *cobra.Command {
	var timeout time.Duration
	var all bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover LED peripherals",
		Long:  "Runs a single BLE discovery pass and lists advertising devices. By default only Sirius3 peripherals are shown.",
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("scan")

			tr, err := transport.NewBlueZ(logger)
			if err != nil {
				logger.Error("bluetooth unavailable", "error", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
			defer cancel()

			found, err := tr.Discover(ctx, timeout)
			if err != nil {
				logger.Error("discovery failed", "error", err)
				os.Exit(1)
			}

			var shown int
			for _, d := range found {
				if !all && !strings.HasPrefix(d.Name, "Sirius3_") {
					continue
				}
				fmt.Printf("%-24s %s\n", d.Name, d.Address)
				shown++
			}
			if shown == 0 {
				fmt.Println("no devices found")
			}
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Discovery duration")
	cmd.Flags().BoolVar(&all, "all", false, "Show every advertising device, not just Sirius3 peripherals")
	return cmd
}
