package cmd

import (
	"github.com/spf13/cobra"

	"midiseq/debug"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "midiseq",
	Short: "MIDI timeline sequencer",
	Long:  `midiseq plays, inspects and rewrites standard MIDI files through a sorted event timeline.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugFlag {
			return debug.Enable()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "write a debug log to ~/.config/midiseq/debug.log")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
