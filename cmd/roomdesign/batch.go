package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/manash/roomdesign/internal/batch"
	"github.com/manash/roomdesign/internal/editor"
	"github.com/manash/roomdesign/pkg/models"
)

func newBatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Restyle many room photos listed in a file",
		Long: `Restyle every photo listed in a .txt or .json file.

Text files hold one room per line as "photo | style | edit | edit ...".
Only the photo is required; --style fills in rooms without one.

JSON files hold an array of {"photo", "style", "edits", "output"} objects.

Examples:
  roomdesign batch rooms.txt --style modern
  roomdesign batch rooms.json --parallel 3 --output-dir designs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), app, args[0])
		},
	}

	cmd.Flags().StringVarP(&flagStyle, "style", "s", "", "style for rooms that do not name one")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "number of rooms to restyle at once")
	cmd.Flags().BoolVar(&flagStopOnError, "stop-on-error", false, "stop at the first failed room")
	cmd.Flags().StringVar(&flagOutputDir, "output-dir", ".", "directory for the designs")
	cmd.Flags().IntVar(&flagDelay, "delay", 0, "milliseconds to wait between rooms when sequential")

	return cmd
}

func runBatch(parent context.Context, app *App, file string) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	items, err := batch.ParseFile(file)
	if err != nil {
		return err
	}

	opts := &batch.Options{
		OutputDir:   flagOutputDir,
		Parallel:    flagParallel,
		StopOnError: flagStopOnError,
		DelayMs:     flagDelay,
	}
	if flagStyle != "" {
		if opts.DefaultStyle, err = models.ParseStyle(flagStyle); err != nil {
			return err
		}
	}

	rt, err := bootstrap(app)
	if err != nil {
		return err
	}
	defer rt.close()

	prov, cap, err := rt.imageProvider()
	if err != nil {
		return err
	}

	rt.logger.Info("starting batch",
		zap.String("file", file),
		zap.Int("rooms", len(items)),
		zap.Int("parallel", flagParallel))

	proc := batch.NewProcessor(&editor.Config{
		Generator: prov,
		Model:     rt.imageModel,
		Provider:  cap.Provider,
		Recorder:  rt.ledger,
		Logger:    rt.logger,
	}, app.NewSaver(), app.Out, app.Err)

	fmt.Fprintf(app.Out, "Restyling %d room(s) with %s\n\n", len(items), rt.imageModel)
	results, err := proc.Process(ctx, items, opts)
	proc.PrintSummary(results)
	return err
}
