package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/manash/roomdesign/internal/chat"
	"github.com/manash/roomdesign/internal/display"
	"github.com/manash/roomdesign/internal/editor"
	"github.com/manash/roomdesign/internal/image"
	"github.com/manash/roomdesign/internal/ledger"
	"github.com/manash/roomdesign/internal/provider"
	"github.com/manash/roomdesign/pkg/models"
)

// CompareFunc runs an interactive before/after view starting at position
// and returns the chosen position and whether the user accepted it.
type CompareFunc func(ctx context.Context, position float64) (float64, bool, error)

type REPL struct {
	in        io.Reader
	out       io.Writer
	err       io.Writer
	editor    *editor.Editor
	chat      *chat.Session
	assistant *chat.Assistant
	factory   *provider.Factory
	registry  *models.ModelRegistry
	ledger    *ledger.Store
	displayer *display.Displayer
	saver     *image.Saver
	compare   CompareFunc
	logger    *zap.Logger
	async     bool
	jobs      sync.WaitGroup
	commands  map[string]Command
	running   bool
	position  float64
}

type Config struct {
	In        io.Reader
	Out       io.Writer
	Err       io.Writer
	Editor    *editor.Editor
	Chat      *chat.Session
	Assistant *chat.Assistant
	Factory   *provider.Factory
	Registry  *models.ModelRegistry
	Ledger    *ledger.Store
	Displayer *display.Displayer
	Saver     *image.Saver
	Compare   CompareFunc
	Logger    *zap.Logger
	// Async runs image generation in the background so the prompt stays
	// available for chat and compare.
	Async bool
}

func New(cfg *Config) *REPL {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	saver := cfg.Saver
	if saver == nil {
		saver = image.NewSaver()
	}

	mu := &sync.Mutex{}
	r := &REPL{
		in:        cfg.In,
		out:       &lockedWriter{mu: mu, w: cfg.Out},
		err:       &lockedWriter{mu: mu, w: cfg.Err},
		editor:    cfg.Editor,
		chat:      cfg.Chat,
		assistant: cfg.Assistant,
		factory:   cfg.Factory,
		registry:  cfg.Registry,
		ledger:    cfg.Ledger,
		displayer: cfg.Displayer,
		saver:     saver,
		compare:   cfg.Compare,
		logger:    logger.Named("repl"),
		async:     cfg.Async,
		commands:  make(map[string]Command),
		position:  50,
	}
	r.editor.SetNotifier(r)
	r.registerCommands()
	return r
}

// Notify prints an editor notice.
func (r *REPL) Notify(message string) {
	fmt.Fprintf(r.err, "! %s\n", message)
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	r.jobs.Wait()
	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

// Upload loads a room photo as if 'upload path' was typed at the prompt.
func (r *REPL) Upload(ctx context.Context, path string) error {
	return (&UploadCommand{}).Execute(ctx, r, []string{path})
}

func (r *REPL) Stop() {
	r.running = false
}

// Wait blocks until background generations finish.
func (r *REPL) Wait() {
	r.jobs.Wait()
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "roomdesign interactive mode")
	if r.editor.Screen() == editor.ScreenUpload {
		fmt.Fprintln(r.out, "Upload a room photo with 'upload <path>' to get started.")
	}
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	room := r.editor.Room()
	switch {
	case room == nil:
		fmt.Fprint(r.out, "roomdesign> ")
	case r.editor.Processing():
		fmt.Fprintf(r.out, "roomdesign [%s] (working)> ", roomLabel(room))
	default:
		fmt.Fprintf(r.out, "roomdesign [%s]> ", roomLabel(room))
	}
}

func roomLabel(room *editor.Room) string {
	if room.Style == "" {
		return "original"
	}
	if room.Edits > 1 {
		return fmt.Sprintf("%s +%d", room.Style, room.Edits-1)
	}
	return string(room.Style)
}

// generate runs fn in the foreground, or in the background when async.
// The busy check happens up front so a rejected request reports right away.
func (r *REPL) generate(ctx context.Context, label string, fn func(ctx context.Context) (models.Image, error)) error {
	if r.editor.Screen() == editor.ScreenUpload {
		return editor.ErrNoImage
	}
	if r.editor.Processing() {
		return editor.ErrBusy
	}

	fmt.Fprintf(r.out, "%s...\n", label)
	if !r.async {
		return r.finish(fn(ctx))
	}

	r.jobs.Add(1)
	go func() {
		defer r.jobs.Done()
		if err := r.finish(fn(ctx)); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}()
	return nil
}

func (r *REPL) finish(img models.Image, err error) error {
	switch {
	case errors.Is(err, editor.ErrGenerationFailed):
		// The editor already showed the notice.
		r.logger.Debug("generation failed", zap.Error(err))
		return nil
	case errors.Is(err, editor.ErrRoomReset):
		fmt.Fprintln(r.out, "Discarded a design for a room that was reset.")
		return nil
	case err != nil:
		return err
	}

	room := r.editor.Room()
	if room == nil {
		return nil
	}
	fmt.Fprintf(r.out, "Design updated: %s (%s)\n", roomLabel(room), formatCost(room.Cost))
	if r.displayer != nil {
		if err := r.displayer.Show("", img); err != nil {
			r.logger.Warn("failed to display design", zap.Error(err))
		}
	}
	return nil
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
