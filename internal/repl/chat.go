package repl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manash/roomdesign/internal/chat"
	"github.com/manash/roomdesign/pkg/models"
)

var ErrChatDisabled = errors.New("chat is not configured")

// ChatCommand asks the design assistant
type ChatCommand struct{}

func (c *ChatCommand) Name() string        { return "chat" }
func (c *ChatCommand) Aliases() []string   { return []string{"ask", "say"} }
func (c *ChatCommand) Description() string { return "Ask the design assistant" }
func (c *ChatCommand) Usage() string       { return "chat <message>" }

func (c *ChatCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.chat == nil {
		return ErrChatDisabled
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	message := strings.Join(args, " ")
	if !r.async {
		return r.ask(ctx, message)
	}
	if r.chat.Loading() {
		return chat.ErrBusy
	}

	r.jobs.Add(1)
	go func() {
		defer r.jobs.Done()
		if err := r.ask(ctx, message); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}()
	return nil
}

// ask sends message and prints the assistant's reply, if one arrived.
func (r *REPL) ask(ctx context.Context, message string) error {
	before := len(r.chat.Turns())
	if err := r.chat.Send(ctx, message); err != nil {
		return err
	}

	turns := r.chat.Turns()
	if len(turns) <= before+1 {
		return nil
	}
	last := turns[len(turns)-1]
	if last.Role == models.RoleAssistant {
		fmt.Fprintf(r.out, "assistant: %s\n", last.Text)
	}
	return nil
}

// TurnsCommand prints the conversation
type TurnsCommand struct{}

func (c *TurnsCommand) Name() string        { return "turns" }
func (c *TurnsCommand) Aliases() []string   { return []string{"log"} }
func (c *TurnsCommand) Description() string { return "Show the conversation with the assistant" }
func (c *TurnsCommand) Usage() string       { return "turns" }

func (c *TurnsCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if r.chat == nil {
		return ErrChatDisabled
	}

	turns := r.chat.Turns()
	if len(turns) == 0 {
		fmt.Fprintln(r.out, "No messages yet. Try 'chat what colors go with oak floors?'")
		return nil
	}

	for _, t := range turns {
		who := "you"
		if t.Role == models.RoleAssistant {
			who = "assistant"
		}
		fmt.Fprintf(r.out, "[%s] %s: %s\n", t.Timestamp.Format("15:04"), who, t.Text)
	}
	if r.chat.Loading() {
		fmt.Fprintln(r.out, "(assistant is typing...)")
	}
	return nil
}
