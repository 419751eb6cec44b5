package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"midiseq/config"
	"midiseq/midifile"
	"midiseq/player"
	"midiseq/synth"
)

var (
	playPort string
	playFrom int
	playLoop bool
)

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a MIDI file through a MIDI output port",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		port := playPort
		if port == "" {
			port = cfg.OutputPort
		}

		// Backend problems are reported once here; playback is simply
		// unavailable without one.
		out, err := synth.OpenMIDIOut(port)
		if err != nil {
			return fmt.Errorf("playback unavailable: %w", err)
		}

		data, err := midifile.Load(args[0])
		if err != nil {
			return err
		}
		tl, err := midifile.Import(data, out)
		if err != nil {
			return err
		}

		ctrl := player.NewController()
		p := player.New(out, ctrl)
		p.Loop = playLoop

		done := make(chan struct{})
		go func() {
			p.Run(tl)
			close(done)
		}()

		fmt.Printf("Playing %s on %q: %d events, %.1f bpm\n",
			args[0], out.PortName(), tl.Len(), tl.BPM())
		ctrl.SetStart(playFrom)
		ctrl.Play()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-sigs:
				ctrl.Kill()
				<-done
				out.Silence()
				return nil
			case <-ticker.C:
				if !ctrl.Playing() {
					ctrl.Kill()
					<-done
					out.Silence()
					return nil
				}
			}
		}
	},
}

func init() {
	playCmd.Flags().StringVar(&playPort, "port", "", "MIDI output port name (default: config, else first available)")
	playCmd.Flags().IntVar(&playFrom, "from", 0, "start playback at this tick")
	playCmd.Flags().BoolVar(&playLoop, "loop", false, "loop playback until interrupted")
	rootCmd.AddCommand(playCmd)
}
