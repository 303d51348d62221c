package cmd

import (
	"fmt"

	"github.com/nowsound-go/nowsound/internal/hostaudio"
	"github.com/spf13/cobra"
)

// devicesCommand lists the capture devices the host exposes, so an
// operator can pick an --input-device name for serve.
func devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := hostaudio.EnumerateDevices()
			if err != nil {
				return fmt.Errorf("enumerate devices: %w", err)
			}
			if len(devices) == 0 {
				fmt.Println("no audio devices found")
				return nil
			}
			for _, d := range devices {
				marker := ""
				if d.IsDefault {
					marker = " (default)"
				}
				fmt.Printf("%s%s\n", d.Name, marker)
			}
			return nil
		},
	}
}
