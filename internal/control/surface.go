package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"skmotion/internal/logging"
)

// Surface reads operator commands line by line and writes replies.
type Surface struct {
	in         io.Reader
	out        io.Writer
	dispatcher *Dispatcher
	logger     *slog.Logger
	mu         sync.Mutex
}

func NewSurface(in io.Reader, out io.Writer, dispatcher *Dispatcher, logger *slog.Logger) *Surface {
	return &Surface{
		in:         in,
		out:        out,
		dispatcher: dispatcher,
		logger:     logging.NewComponentLogger(logger, "control"),
	}
}

// Run dispatches commands until ctx is cancelled, input ends, or a stop command
// is read. Reading happens on a helper goroutine; when ctx ends first that
// goroutine stays parked in Read until the input produces a line or closes.
func (s *Surface) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	s.println("Recording! Type \"stop\" (or press Ctrl+C) to finish, \"help\" for commands.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read commands: %w", err)
			}
			s.logger.Debug("command input closed")
			return nil
		case line := <-lines:
			reply := s.dispatcher.Execute(line)
			if reply.Text != "" {
				s.println(reply.Text)
			}
			if reply.Stop {
				return nil
			}
		}
	}
}

func (s *Surface) println(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.out, text)
}
