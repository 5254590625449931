package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/manash/roomdesign/internal/editor"
	"github.com/manash/roomdesign/internal/security"
	"github.com/manash/roomdesign/pkg/models"
)

var errNothingToDo = errors.New("nothing to do: pass --style and/or --edit")

func newRestyleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restyle <photo>",
		Short: "Restyle a room photo and apply edits without the interactive prompt",
		Long: `Restyle a room photo in one go. The style is applied first, then each
--edit in order, each one working on the previous result.

Examples:
  roomdesign restyle kitchen.jpg --style industrial
  roomdesign restyle den.png --style "mid-century" --edit "add a walnut sideboard" -o den-mcm.png
  roomdesign restyle office.jpg --edit "swap the desk for a standing desk"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestyle(cmd.Context(), app, args)
		},
	}

	cmd.Flags().StringVarP(&flagStyle, "style", "s", "", "design style (modern, minimalist, bohemian, industrial, scandinavian, mid-century, art-deco, coastal)")
	cmd.Flags().StringArrayVarP(&flagEdits, "edit", "e", nil, "edit instruction; repeat to chain edits")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output filename (relative; defaults to <photo>-design-<timestamp>)")

	return cmd
}

func runRestyle(parent context.Context, app *App, args []string) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	if flagStyle == "" && len(flagEdits) == 0 {
		return errNothingToDo
	}

	var style models.Style
	if flagStyle != "" {
		var err error
		if style, err = models.ParseStyle(flagStyle); err != nil {
			return err
		}
	}
	if flagOutput != "" {
		if err := security.ValidateSavePath(security.WithImageExtension(flagOutput, "png")); err != nil {
			return fmt.Errorf("invalid output path: %w", err)
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

	ed := editor.New(&editor.Config{
		Generator: prov,
		Model:     rt.imageModel,
		Provider:  cap.Provider,
		Recorder:  rt.ledger,
		Notifier: editor.NotifierFunc(func(msg string) {
			fmt.Fprintln(app.Err, msg)
		}),
		Logger: rt.logger,
	})

	if err := ed.UploadFile(ctx, args[0]); err != nil {
		return err
	}

	if style != "" {
		fmt.Fprintf(app.Out, "Generating %s design with %s...\n", style, rt.imageModel)
		if _, err := ed.SelectStyle(ctx, style); err != nil {
			return err
		}
	}

	for i, instruction := range flagEdits {
		fmt.Fprintf(app.Out, "Applying edit %d/%d: %s\n", i+1, len(flagEdits), instruction)
		if _, err := ed.SubmitEdit(ctx, instruction); err != nil {
			return err
		}
	}

	room := ed.Room()
	output := flagOutput
	if output != "" {
		output = security.WithImageExtension(output, room.Current.Extension())
		if err := security.ValidateSavePath(output); err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
	}

	path, err := app.NewSaver().Save(room.Current, output, room.Name, "design")
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Saved: %s (%s)\n", path, humanize.Bytes(uint64(len(room.Current.Data))))
	fmt.Fprintf(app.Out, "Cost: $%.4f\n", room.Cost)
	fmt.Fprintln(app.Out, "Done!")
	return nil
}
