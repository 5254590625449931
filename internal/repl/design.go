package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/manash/roomdesign/internal/editor"
	"github.com/manash/roomdesign/internal/image"
	"github.com/manash/roomdesign/internal/security"
	"github.com/manash/roomdesign/pkg/models"
)

// UploadCommand loads a room photo
type UploadCommand struct{}

func (c *UploadCommand) Name() string        { return "upload" }
func (c *UploadCommand) Aliases() []string   { return []string{"open", "u"} }
func (c *UploadCommand) Description() string { return "Load a room photo (file path or data URL)" }
func (c *UploadCommand) Usage() string       { return "upload <path>" }

func (c *UploadCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	if err := r.editor.UploadFile(ctx, args[0]); err != nil {
		return err
	}

	room := r.editor.Room()
	if room == nil {
		return nil
	}
	dims := ""
	if w, h, err := image.Dimensions(room.Original); err == nil {
		dims = fmt.Sprintf(", %dx%d", w, h)
	}
	fmt.Fprintf(r.out, "Loaded %s (%s%s)\n", room.Name, describeImage(room.Original), dims)
	fmt.Fprintln(r.out, "Pick a look with 'style <name>' ('styles' lists them) or describe a change with 'edit'.")
	if r.displayer != nil {
		if err := r.displayer.Show("", room.Original); err != nil {
			fmt.Fprintf(r.err, "Warning: failed to display photo: %v\n", err)
		}
	}
	return nil
}

// StylesCommand lists the design styles
type StylesCommand struct{}

func (c *StylesCommand) Name() string        { return "styles" }
func (c *StylesCommand) Aliases() []string   { return []string{"ls"} }
func (c *StylesCommand) Description() string { return "List design styles" }
func (c *StylesCommand) Usage() string       { return "styles" }

func (c *StylesCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	var current models.Style
	if room := r.editor.Room(); room != nil {
		current = room.Style
	}
	for i, s := range models.Styles() {
		marker := " "
		if s == current {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %d. %s\n", marker, i+1, s)
	}
	return nil
}

// StyleCommand restyles the current design
type StyleCommand struct{}

func (c *StyleCommand) Name() string        { return "style" }
func (c *StyleCommand) Aliases() []string   { return []string{"s"} }
func (c *StyleCommand) Description() string { return "Redesign the room in a style" }
func (c *StyleCommand) Usage() string       { return "style <name|number>" }

func (c *StyleCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	style, err := parseStyleArg(strings.Join(args, " "))
	if err != nil {
		return err
	}

	return r.generate(ctx, fmt.Sprintf("Generating %s design with %s", style, r.editor.Model()),
		func(ctx context.Context) (models.Image, error) {
			return r.editor.SelectStyle(ctx, style)
		})
}

func parseStyleArg(arg string) (models.Style, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		styles := models.Styles()
		if n < 1 || n > len(styles) {
			return "", fmt.Errorf("%w: style number must be 1-%d", models.ErrUnknownStyle, len(styles))
		}
		return styles[n-1], nil
	}
	return models.ParseStyle(arg)
}

// EditCommand applies an instruction to the current design
type EditCommand struct{}

func (c *EditCommand) Name() string        { return "edit" }
func (c *EditCommand) Aliases() []string   { return []string{"e"} }
func (c *EditCommand) Description() string { return "Edit the current design (no text retries the last failed edit)" }
func (c *EditCommand) Usage() string       { return "edit [instruction]" }

func (c *EditCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	instruction := strings.Join(args, " ")
	if strings.TrimSpace(instruction) == "" {
		draft := r.editor.Draft()
		if strings.TrimSpace(draft) == "" {
			return editor.ErrEmptyInstruction
		}
		return r.generate(ctx, fmt.Sprintf("Retrying edit %q", truncate(draft, 40)),
			func(ctx context.Context) (models.Image, error) {
				return r.editor.SubmitDraft(ctx)
			})
	}

	return r.generate(ctx, fmt.Sprintf("Editing with %s", r.editor.Model()),
		func(ctx context.Context) (models.Image, error) {
			return r.editor.SubmitEdit(ctx, instruction)
		})
}

// CompareCommand renders the before/after view
type CompareCommand struct{}

func (c *CompareCommand) Name() string        { return "compare" }
func (c *CompareCommand) Aliases() []string   { return []string{"cmp", "c"} }
func (c *CompareCommand) Description() string { return "Compare original and current design with a wipe slider" }
func (c *CompareCommand) Usage() string       { return "compare [percent] [file]" }

func (c *CompareCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	room := r.editor.Room()
	if room == nil {
		return editor.ErrNoImage
	}

	position := r.position
	var path string
	switch {
	case len(args) > 0:
		pct, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "%"), 64)
		if err != nil || pct < 0 || pct > 100 {
			return fmt.Errorf("percent must be a number from 0 to 100: %s", args[0])
		}
		position = pct
		if len(args) > 1 {
			path = args[1]
		}
	case r.compare != nil:
		pos, accepted, err := r.compare(ctx, position)
		if err != nil {
			return err
		}
		r.position = pos
		if !accepted {
			fmt.Fprintf(r.out, "Slider left at %.0f%%\n", pos)
			return nil
		}
		position = pos
	}
	r.position = position

	composite, err := image.Wipe(room.Original, room.Current, position)
	if err != nil {
		return fmt.Errorf("failed to build comparison: %w", err)
	}

	caption := fmt.Sprintf("Before %.0f%% | After %.0f%%", position, 100-position)
	if r.displayer != nil && path == "" {
		return r.displayer.Show(caption, composite)
	}

	saved, err := r.save(composite, path, room.Name, "compare")
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s\nSaved comparison to %s\n", caption, saved)
	return nil
}

// ShowCommand displays an image inline
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"view", "v"} }
func (c *ShowCommand) Description() string { return "Display the original photo or current design" }
func (c *ShowCommand) Usage() string       { return "show [original|current]" }

func (c *ShowCommand) Execute(_ context.Context, r *REPL, args []string) error {
	room := r.editor.Room()
	if room == nil {
		return editor.ErrNoImage
	}
	if r.displayer == nil {
		return fmt.Errorf("terminal does not support inline images; use 'save' instead")
	}

	which := "current"
	if len(args) > 0 {
		which = strings.ToLower(args[0])
	}

	switch which {
	case "current", "after":
		return r.displayer.Show(fmt.Sprintf("Current design (%s)", roomLabel(room)), room.Current)
	case "original", "before":
		return r.displayer.Show("Original photo", room.Original)
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}
}

// SaveCommand writes the current design to disk
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"w"} }
func (c *SaveCommand) Description() string { return "Save the current design" }
func (c *SaveCommand) Usage() string       { return "save [file]" }

func (c *SaveCommand) Execute(_ context.Context, r *REPL, args []string) error {
	room := r.editor.Room()
	if room == nil {
		return editor.ErrNoImage
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}

	label := "original"
	if room.Style != "" || room.Edits > 0 {
		label = "design"
	}
	saved, err := r.save(room.Current, path, room.Name, label)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved %s to %s\n", humanize.Bytes(uint64(len(room.Current.Data))), saved)
	return nil
}

func (r *REPL) save(img models.Image, path, roomName, label string) (string, error) {
	if path != "" {
		path = security.WithImageExtension(path, img.Extension())
		if err := security.ValidateSavePath(path); err != nil {
			return "", fmt.Errorf("invalid path: %w", err)
		}
	}
	saved, err := r.saver.Save(img, path, roomName, label)
	if err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return saved, nil
}

// ResetCommand starts over
type ResetCommand struct{}

func (c *ResetCommand) Name() string        { return "reset" }
func (c *ResetCommand) Aliases() []string   { return []string{"new", "start-over"} }
func (c *ResetCommand) Description() string { return "Discard the room and chat and start over" }
func (c *ResetCommand) Usage() string       { return "reset" }

func (c *ResetCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.editor.StartOver()
	r.position = 50
	fmt.Fprintln(r.out, "Started over. Upload a new room photo with 'upload <path>'.")
	return nil
}
