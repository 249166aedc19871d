package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirius3/lednode/internal/logging"
	"github.com/sirius3/lednode/internal/transport"
)

// CreateSendCmd creates the send command: connect to one peripheral by
// its advertised name and write a raw protocol line. Useful when
// poking at firmware without the server running.
func CreateSendCmd() *cobra.Command {
	var name string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "send [command]",
		Short: "Send a raw command to a peripheral",
		Long: `Connects to a peripheral and writes one raw protocol line, e.g. "C:255,0,0" ` +
			`to set a color or "M:1" to enable hue cycling. Disconnects afterwards.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			line := args[0]

			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("send")

			tr, err := transport.NewBlueZ(logger)
			if err != nil {
				logger.Error("bluetooth unavailable", "error", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			found, err := tr.Discover(ctx, 5*time.Second)
			if err != nil {
				logger.Error("discovery failed", "error", err)
				os.Exit(1)
			}
			var address string
			for _, d := range found {
				if d.Name == name {
					address = d.Address
					break
				}
			}
			if address == "" {
				logger.Error("device not found", "name", name)
				os.Exit(1)
			}

			handle, err := tr.Connect(ctx, address, 10*time.Second)
			if err != nil {
				logger.Error("connect failed", "address", address, "error", err)
				os.Exit(1)
			}
			defer handle.Disconnect()

			if err := handle.Write(ctx, []byte(line)); err != nil {
				logger.Error("write failed", "command", line, "error", err)
				os.Exit(1)
			}
			fmt.Printf("sent %q to %s (%s)\n", line, name, address)
		},
	}

	cmd.Flags().StringVar(&name, "name", "Sirius3_LEFT_EAR", "Advertised device name")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall operation timeout")
	return cmd
}
