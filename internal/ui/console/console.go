// Package console is the terminal counterpart of the countdown window, used
// when the service runs without a display.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"remoteshutdown/internal/core/countdown"

	"github.com/chzyer/readline"
)

// Controller is the part of the countdown engine the console drives.
type Controller interface {
	Abort() bool
	State() countdown.State
}

// Console prints countdown events and accepts an abort command.
type Console struct {
	controller Controller
	rl         *readline.Instance
}

// New creates a console bound to the terminal. The controller may be nil
// until SetController is called.
func New(controller Controller) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "shutdown> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{controller: controller, rl: rl}, nil
}

// SetController binds the countdown engine. It must be called before Run.
func (c *Console) SetController(controller Controller) {
	c.controller = controller
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Handle prints a countdown event. Sub-second progress is skipped.
func (c *Console) Handle(event countdown.Event) {
	if event.Type == countdown.EventProgress && event.Remaining%time.Second != 0 {
		return
	}
	fmt.Fprintln(c.rl.Stdout(), FormatEvent(event))
}

// Close releases the terminal and unblocks Run.
func (c *Console) Close() error {
	return c.rl.Close()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp(c.rl.Stdout())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			cancel()
			return
		}

		if quit := c.Execute(c.rl.Stdout(), line); quit {
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the console should exit.
func (c *Console) Execute(out io.Writer, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	switch strings.ToLower(strings.Fields(input)[0]) {
	case "abort", "a":
		if c.controller.Abort() {
			fmt.Fprintln(out, "Abort requested.")
		} else {
			fmt.Fprintln(out, "No countdown is running.")
		}
	case "status", "s":
		fmt.Fprintf(out, "Countdown is %s.\n", c.controller.State())
	case "help", "?":
		c.printHelp(out)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(out, "Unknown command %q. Type 'help' for commands.\n", input)
	}
	return false
}

func (c *Console) printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  abort, a    abort the running countdown")
	fmt.Fprintln(out, "  status, s   show the countdown state")
	fmt.Fprintln(out, "  help, ?     show this help")
	fmt.Fprintln(out, "  quit, q     stop the service")
}

// FormatEvent renders an event as one console line.
func FormatEvent(event countdown.Event) string {
	seconds := int((event.Remaining + time.Second - 1) / time.Second)
	switch event.Type {
	case countdown.EventStarted:
		return fmt.Sprintf("Shutdown requested: shutting down in %ds. Type 'abort' to cancel.", seconds)
	case countdown.EventProgress:
		return fmt.Sprintf("Shutdown in %ds", seconds)
	case countdown.EventFired:
		return "Shutting down now."
	case countdown.EventAborted:
		return fmt.Sprintf("Shutdown aborted with %ds left.", seconds)
	default:
		return string(event.Type)
	}
}
