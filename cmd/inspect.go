package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"midiseq/midifile"
	"midiseq/timeline"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize the tracks and events of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := midifile.Load(args[0])
		if err != nil {
			return err
		}
		tl, err := midifile.Import(data, nil)
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d ticks/beat, %.1f bpm, %d ticks long\n",
			args[0], tl.TicksPerBeat(), tl.BPM(), tl.End())

		for _, track := range tl.Tracks() {
			notes := 0
			messages := 0
			for _, ev := range tl.EventsInTrack(track) {
				switch ev := ev.(type) {
				case *timeline.Note:
					if ev.On {
						notes++
					}
				case *timeline.MessageEvent:
					messages++
				}
			}
			kind := fmt.Sprintf("program %d", track.Instrument)
			if track.IsPercussion() {
				kind = "percussion"
			}
			fmt.Printf("  channel %2d (%s): %d notes, %d messages\n",
				track.Channel, kind, notes, messages)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
