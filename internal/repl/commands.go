package repl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/manash/roomdesign/internal/editor"
	"github.com/manash/roomdesign/internal/ledger"
	"github.com/manash/roomdesign/internal/provider"
	"github.com/manash/roomdesign/pkg/models"
)

var ErrLedgerDisabled = errors.New("usage history is disabled")

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func commandList() []Command {
	return []Command{
		&UploadCommand{},
		&StylesCommand{},
		&StyleCommand{},
		&EditCommand{},
		&ChatCommand{},
		&TurnsCommand{},
		&CompareCommand{},
		&ShowCommand{},
		&SaveCommand{},
		&StatusCommand{},
		&HistoryCommand{},
		&CostCommand{},
		&ModelCommand{},
		&ResetCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range commandList() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// StatusCommand shows the loaded room
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return []string{"info"} }
func (c *StatusCommand) Description() string { return "Show the loaded room and design" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintf(r.out, "Screen:     %s\n", r.editor.Screen())
	fmt.Fprintf(r.out, "Model:      %s\n", r.editor.Model())
	if r.factory != nil {
		var names []string
		for _, p := range r.factory.ListProviders() {
			names = append(names, string(p))
		}
		fmt.Fprintf(r.out, "Providers:  %s\n", strings.Join(names, ", "))
	}

	room := r.editor.Room()
	if room == nil {
		fmt.Fprintln(r.out, "No room loaded.")
		return nil
	}

	fmt.Fprintf(r.out, "Room:       %s\n", room.Name)
	fmt.Fprintf(r.out, "ID:         %s\n", room.ID)
	fmt.Fprintf(r.out, "Loaded:     %s\n", humanize.Time(room.CreatedAt))
	fmt.Fprintf(r.out, "Original:   %s\n", describeImage(room.Original))
	fmt.Fprintf(r.out, "Current:    %s\n", describeImage(room.Current))
	style := "none"
	if room.Style != "" {
		style = string(room.Style)
	}
	fmt.Fprintf(r.out, "Style:      %s\n", style)
	fmt.Fprintf(r.out, "Designs:    %d\n", room.Edits)
	fmt.Fprintf(r.out, "Cost:       %s\n", formatCost(room.Cost))
	if r.editor.Processing() {
		fmt.Fprintln(r.out, "Working:    yes")
	}
	if draft := r.editor.Draft(); draft != "" {
		fmt.Fprintf(r.out, "Draft:      %s\n", truncate(draft, 60))
	}
	if r.chat != nil {
		fmt.Fprintf(r.out, "Chat turns: %d\n", len(r.chat.Turns()))
	}
	return nil
}

// HistoryCommand lists recorded calls
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"hist", "h"} }
func (c *HistoryCommand) Description() string { return "Show generator calls for this room (or recent calls)" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	if r.ledger == nil {
		return ErrLedgerDisabled
	}

	var entries []*ledger.Entry
	var err error
	if room := r.editor.Room(); room != nil {
		entries, err = r.ledger.ListByRoom(ctx, room.ID)
	} else {
		entries, err = r.ledger.Recent(ctx, 20)
	}
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No calls recorded.")
		return nil
	}

	for i, e := range entries {
		detail := e.Style
		if detail == "" {
			detail = e.Prompt
		}
		fmt.Fprintf(r.out, "[%d] %s  %-5s  %-6s  %s  (%s, %s)\n",
			i+1,
			ledger.FormatTimestamp(e.Timestamp),
			e.Operation,
			e.Status,
			truncate(detail, 40),
			e.Duration.Round(100*time.Millisecond),
			formatCost(e.Cost))
		if e.Failed() && e.Error != "" {
			fmt.Fprintf(r.out, "    error: %s\n", truncate(e.Error, 70))
		}
	}
	return nil
}

// ModelCommand shows or switches models
type ModelCommand struct{}

func (c *ModelCommand) Name() string        { return "model" }
func (c *ModelCommand) Aliases() []string   { return []string{"m"} }
func (c *ModelCommand) Description() string { return "Show or switch the image or chat model" }
func (c *ModelCommand) Usage() string       { return "model [name]" }

func (c *ModelCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Image model: %s\n", r.editor.Model())
		if r.assistant != nil {
			fmt.Fprintf(r.out, "Chat model:  %s\n", r.assistant.Model)
		}
		fmt.Fprintln(r.out, "\nAvailable models:")
		for _, name := range r.registry.List() {
			cap, _ := r.registry.Get(name)
			fmt.Fprintf(r.out, "  %-24s %-7s %-6s %s\n", name, cap.Provider, cap.Kind, cap.Description)
		}
		return nil
	}

	name := args[0]
	cap, err := r.registry.Lookup(name)
	if err != nil {
		return err
	}
	if r.factory == nil {
		return fmt.Errorf("%w: %s", provider.ErrProviderNotFound, cap.Provider)
	}
	p, err := r.factory.GetForModel(name)
	if err != nil {
		return err
	}

	switch cap.Kind {
	case models.KindImage:
		if r.editor.Processing() {
			return editor.ErrBusy
		}
		r.editor.SetGenerator(p, cap.Provider, name)
		fmt.Fprintf(r.out, "Image model set to %s\n", name)
	case models.KindChat:
		if r.assistant == nil {
			return ErrChatDisabled
		}
		r.assistant.Chatter = p
		r.assistant.Model = name
		fmt.Fprintf(r.out, "Chat model set to %s\n", name)
	}
	return nil
}

// CostCommand displays cost information
type CostCommand struct{}

func (c *CostCommand) Name() string        { return "cost" }
func (c *CostCommand) Aliases() []string   { return []string{"$"} }
func (c *CostCommand) Description() string { return "View cost summary (today, week, month, total, provider, room)" }
func (c *CostCommand) Usage() string       { return "cost <today|week|month|total|provider|room>" }

func (c *CostCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.ledger == nil {
		return ErrLedgerDisabled
	}
	if len(args) == 0 {
		return c.showTotal(ctx, r)
	}

	subCmd := strings.ToLower(args[0])
	switch subCmd {
	case "today":
		return c.showRange(ctx, r, 1, "Today's cost", "No costs recorded today.")
	case "week":
		return c.showRange(ctx, r, 7, "Last 7 days cost", "No costs recorded in the last 7 days.")
	case "month":
		return c.showRange(ctx, r, 30, "Last 30 days cost", "No costs recorded in the last 30 days.")
	case "total":
		return c.showTotal(ctx, r)
	case "provider":
		return c.showByProvider(ctx, r)
	case "room":
		return c.showRoom(ctx, r)
	default:
		return fmt.Errorf("unknown cost command: %s\nUsage: %s", subCmd, c.Usage())
	}
}

func (c *CostCommand) showRange(ctx context.Context, r *REPL, days int, label, empty string) error {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1)

	summary, err := r.ledger.CostByDateRange(ctx, start, end)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, empty)
		return nil
	}

	fmt.Fprintf(r.out, "%s: $%.4f (%d image(s))\n", label, summary.TotalCost, summary.ImageCount)
	return nil
}

func (c *CostCommand) showTotal(ctx context.Context, r *REPL) error {
	summary, err := r.ledger.TotalCost(ctx)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, "No costs recorded yet.")
		return nil
	}

	fmt.Fprintf(r.out, "Total cost: $%.4f (%d image(s))\n", summary.TotalCost, summary.ImageCount)
	return nil
}

func (c *CostCommand) showByProvider(ctx context.Context, r *REPL) error {
	summaries, err := r.ledger.CostByProvider(ctx)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Fprintln(r.out, "No costs recorded yet.")
		return nil
	}

	fmt.Fprintf(r.out, "%-12s  %-8s  %s\n", "Provider", "Images", "Cost")
	fmt.Fprintln(r.out, strings.Repeat("-", 35))

	var totalCost float64
	var totalImages int
	for _, ps := range summaries {
		fmt.Fprintf(r.out, "%-12s  %-8d  $%.4f\n", ps.Provider, ps.ImageCount, ps.TotalCost)
		totalCost += ps.TotalCost
		totalImages += ps.ImageCount
	}

	fmt.Fprintln(r.out, strings.Repeat("-", 35))
	fmt.Fprintf(r.out, "%-12s  %-8d  $%.4f\n", "Total", totalImages, totalCost)

	return nil
}

func (c *CostCommand) showRoom(ctx context.Context, r *REPL) error {
	room := r.editor.Room()
	if room == nil {
		fmt.Fprintln(r.out, "No room loaded.")
		return nil
	}

	summary, err := r.ledger.RoomCost(ctx, room.ID)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, "No costs for this room yet.")
		return nil
	}

	fmt.Fprintf(r.out, "Room cost: $%.4f (%d image(s))\n", summary.TotalCost, summary.ImageCount)
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range commandList() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-20s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "                       Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if r.editor.Processing() {
		fmt.Fprintln(r.out, "Waiting for the current design to finish...")
	}
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

func describeImage(img models.Image) string {
	if img.IsEmpty() {
		return "none"
	}
	return fmt.Sprintf("%s, %s", img.MimeType, humanize.Bytes(uint64(len(img.Data))))
}

func formatCost(cost float64) string {
	return fmt.Sprintf("$%.4f", cost)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
