// Package supervisor runs the completion server as a child process next to the bot.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"relaybot/app/client/relayapi"

	"github.com/samber/do"
)

const (
	DefaultHealthTimeout = 30 * time.Second
	DefaultGracePeriod   = 5 * time.Second

	healthPollInterval = time.Second
)

// ConfigPathKey names the injected config path handed to the child.
const ConfigPathKey = "config_path"

var ErrNotHealthy = errors.New("completion server did not become healthy")

var _ do.Shutdownable = (*Supervisor)(nil)

type HealthChecker interface {
	Health(ctx context.Context) error
}

type Options struct {
	// Command and Args start the child.
	Command       string
	Args          []string
	HealthTimeout time.Duration
	GracePeriod   time.Duration
	PollInterval  time.Duration
}

type Supervisor struct {
	health HealthChecker
	opts   Options

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func New(di *do.Injector) (*Supervisor, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("os.Executable: %w", err)
	}

	args := []string{"serve"}
	if path, invokeErr := do.InvokeNamed[string](di, ConfigPathKey); invokeErr == nil && path != "" {
		args = append(args, "--config", path)
	}

	return NewSupervisor(do.MustInvoke[*relayapi.Client](di), Options{
		Command: executable,
		Args:    args,
	}), nil
}

func NewSupervisor(health HealthChecker, opts Options) *Supervisor {
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = healthPollInterval
	}

	return &Supervisor{
		health: health,
		opts:   opts,
	}
}

// EnsureRunning returns at once when the server is already healthy. Otherwise it
// starts the child and waits for it to report healthy.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	if s.health.Health(ctx) == nil {
		slog.Info("Completion server already running")
		return nil
	}

	if err := s.start(); err != nil {
		return err
	}

	if err := s.waitHealthy(ctx); err != nil {
		if stopErr := s.Stop(); stopErr != nil {
			slog.Warn("Failed to stop completion server", "error", stopErr)
		}
		return err
	}

	slog.Info("Completion server is ready")

	return nil
}

func (s *Supervisor) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return nil
	}

	cmd := exec.Command(s.opts.Command, s.opts.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.opts.Command, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := cmd.Wait(); err != nil {
			slog.Debug("Completion server exited", "error", err)
		}
	}()

	s.cmd = cmd
	s.done = done

	slog.Info("Started completion server", "pid", cmd.Process.Pid)

	return nil
}

func (s *Supervisor) waitHealthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.HealthTimeout)
	defer cancel()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		if s.health.Health(ctx) == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w within %s", ErrNotHealthy, s.opts.HealthTimeout)
		case <-s.exited():
			return fmt.Errorf("%w: process exited", ErrNotHealthy)
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) exited() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.done
}

// Running reports whether a child started by this supervisor is still alive.
func (s *Supervisor) Running() bool {
	done := s.exited()
	if done == nil {
		return false
	}

	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Stop sends SIGTERM to the child, then SIGKILL after the grace period.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.cmd, s.done = nil, nil
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}

	slog.Info("Stopping completion server", "pid", cmd.Process.Pid)

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		slog.Warn("Failed to terminate completion server", "error", err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(s.opts.GracePeriod):
	}

	slog.Warn("Completion server did not stop in time, killing it")

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill completion server: %w", err)
	}

	<-done

	return nil
}

func (s *Supervisor) Shutdown() error {
	return s.Stop()
}
