package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"motion-logger/controller"
	"motion-logger/models"
	"motion-logger/utils"
)

func recordCmd() *cobra.Command {
	var (
		activities []string
		seqFile    string
		mode       string
		value      float64
		label      string
		quiet      bool
		simulate   bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record motion samples, optionally driven by an activity sequence",
		Long: `Record motion samples to a CSV file.

With --activity (repeatable, name:duration) or --sequence (YAML file) the
activities are walked in order with spoken cues and the recording stops
when the last one ends. Without them the recording runs until Ctrl+C.
Ctrl+C during a sequence cancels it and saves the file.`,
		Example: `  motion-logger record --activity walk:10 --activity run:5
  motion-logger record --sequence config/sequence.example.yaml --pre-notice-mode fixed_seconds --pre-notice-value 3
  motion-logger record --label sitting`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := collectSequence(activities, seqFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("pre-notice-mode") {
				cfg.Schedule.PreNoticeMode = mode
			}
			if cmd.Flags().Changed("pre-notice-value") {
				cfg.Schedule.PreNoticeValue = value
			}
			if quiet {
				cfg.Announcements.Enabled = false
			}
			if cmd.Flags().Changed("simulate") {
				cfg.Sensors.Simulate = simulate
			}
			return runRecord(cfg, seq, label)
		},
	}

	cmd.Flags().StringArrayVarP(&activities, "activity", "a", nil, "activity as name:duration (repeatable, in order)")
	cmd.Flags().StringVarP(&seqFile, "sequence", "s", "", "YAML file with the activity sequence")
	cmd.Flags().StringVar(&mode, "pre-notice-mode", "percentage", "percentage or fixed_seconds")
	cmd.Flags().Float64Var(&value, "pre-notice-value", 50, "percent of the activity, or seconds before its end")
	cmd.Flags().StringVarP(&label, "label", "l", "", "activity label for a recording without a sequence")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable spoken announcements")
	cmd.Flags().BoolVar(&simulate, "simulate", true, "generate simulated sensor values")
	return cmd
}

func collectSequence(activities []string, seqFile string) ([]models.ActivitySpec, error) {
	var seq []models.ActivitySpec
	if seqFile != "" {
		data, err := os.ReadFile(seqFile)
		if err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
		seq, err = models.DecodeSequence(data)
		if err != nil {
			return nil, err
		}
	}
	for _, s := range activities {
		a, err := models.ParseActivity(s)
		if err != nil {
			return nil, err
		}
		seq = append(seq, a)
	}
	return seq, nil
}

func runRecord(cfg *utils.Config, seq []models.ActivitySpec, label string) error {
	banner("record")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	events, unsubscribe := a.sequence.Events().Subscribe(32)
	defer unsubscribe()

	a.start(ctx)

	if len(seq) > 0 {
		utils.L().Info("sequence: %v (total %s)", seq, models.TotalDuration(seq))
		_, err = a.sequence.StartSequence(seq)
	} else {
		if label != "" {
			a.sequence.SetCurrentActivity(label)
		}
		_, err = a.sequence.StartRecording()
	}
	if err != nil {
		cancel()
		a.shutdown()
		return err
	}

	utils.L().Info("recording to %s - press Ctrl+C to stop", a.recorder.ActivePath())

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

loop:
	for {
		select {
		case sig := <-sigCh:
			utils.L().Info("received signal: %v - stopping...", sig)
			if err := a.sequence.Cancel(); err != nil {
				if _, err := a.sequence.StopRecording(); err != nil {
					utils.L().Warn("stop: %v", err)
				}
			}
			break loop

		case ev := <-events:
			utils.L().Info("status: %s", ev.Message)
			if ev.State.Terminal() {
				break loop
			}

		case <-statsTicker.C:
			a.logStats()
		}
	}

	// Give the final cue a moment before the speech loop is torn down.
	time.Sleep(500 * time.Millisecond)
	cancel()
	a.shutdown()

	st := a.sequence.Status()
	utils.L().Info("total rows written: %d", a.recorder.RowsWritten())
	if st.LastFile != "" {
		fmt.Println("\n✓ Motion-Logger finished. Recording at:", st.LastFile)
	}
	return nil
}

// statusLine renders the one-line progress shown by list and serve.
func statusLine(st controller.Status) string {
	if !st.Recording {
		return st.Message
	}
	return fmt.Sprintf("%s  elapsed=%s  remaining=%s", st.Message,
		st.Sequence.Elapsed.Round(time.Second), st.Sequence.Remaining.Round(time.Second))
}
