package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available MIDI output ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports := gomidi.GetOutPorts()
		if len(ports) == 0 {
			fmt.Println("No MIDI output ports found")
			return nil
		}
		for i, p := range ports {
			fmt.Printf("%2d: %s\n", i, p.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
