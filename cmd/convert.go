package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"midiseq/midifile"
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Rewrite a MIDI file through the timeline (normalizes track layout)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := midifile.Load(args[0])
		if err != nil {
			return err
		}
		tl, err := midifile.Import(data, nil)
		if err != nil {
			return err
		}
		if err := midifile.Save(tl, args[1]); err != nil {
			return err
		}
		fmt.Printf("Wrote %s: %d events on %d tracks\n", args[1], tl.Len(), len(tl.Tracks()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
