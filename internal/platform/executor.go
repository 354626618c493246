package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// ErrNoCommand indicates the executor was configured with an empty command.
var ErrNoCommand = errors.New("shutdown command is empty")

// CommandExecutor runs the host shutdown command.
type CommandExecutor struct {
	mu      sync.Mutex
	command []string
	logger  *slog.Logger
}

// NewCommandExecutor returns an executor for command, or for the platform's
// default shutdown command when command is empty.
func NewCommandExecutor(command []string, logger *slog.Logger) *CommandExecutor {
	if len(command) == 0 {
		command = DefaultShutdownCommand()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandExecutor{
		command: append([]string(nil), command...),
		logger:  logger.With("component", "executor"),
	}
}

// Command returns the configured command line.
func (executor *CommandExecutor) Command() []string {
	return append([]string(nil), executor.command...)
}

// Fire runs the shutdown command once and waits for it to exit.
func (executor *CommandExecutor) Fire(ctx context.Context) error {
	executor.mu.Lock()
	defer executor.mu.Unlock()

	if len(executor.command) == 0 || executor.command[0] == "" {
		return ErrNoCommand
	}

	executor.logger.Info("running shutdown command", "command", strings.Join(executor.command, " "))
	command := exec.CommandContext(ctx, executor.command[0], executor.command[1:]...)
	output, err := command.CombinedOutput()
	if err != nil {
		return fmt.Errorf("run shutdown command: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
