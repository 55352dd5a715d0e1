package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultMaxHistory is the undo depth used when none is configured
const DefaultMaxHistory = 50

// StackState is a snapshot of the history cursor
type StackState struct {
	CurrentIndex int  `json:"currentIndex"`
	Length       int  `json:"length"`
	CanUndo      bool `json:"canUndo"`
	CanRedo      bool `json:"canRedo"`
}

// CommandStack is a bounded linear undo/redo history.
// Invariant: -1 <= currentIndex < len(history).
type CommandStack struct {
	mu           sync.Mutex
	history      []Command
	currentIndex int
	maxHistory   int
	listener     func(StackState)
	logger       *slog.Logger
}

// NewCommandStack creates an empty history holding at most maxHistory commands
func NewCommandStack(maxHistory int, logger *slog.Logger) *CommandStack {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandStack{
		currentIndex: -1,
		maxHistory:   maxHistory,
		logger:       logger.With("service", "command_stack"),
	}
}

// OnChange registers a listener called after every execute, undo, redo or clear
func (s *CommandStack) OnChange(fn func(StackState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = fn
}

// Execute runs cmd and records it. Commands after the cursor are discarded.
// When the history overflows the oldest entry is evicted and the cursor
// stays where it is.
func (s *CommandStack) Execute(ctx context.Context, cmd Command) error {
	s.mu.Lock()

	if err := cmd.Execute(ctx); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("executing %q: %w", cmd.Description(), err)
	}

	if s.currentIndex < len(s.history)-1 {
		for i := s.currentIndex + 1; i < len(s.history); i++ {
			s.history[i] = nil
		}
		s.history = s.history[:s.currentIndex+1]
	}

	s.history = append(s.history, cmd)
	if len(s.history) > s.maxHistory {
		s.history[0] = nil
		s.history = append(s.history[:0:0], s.history[1:]...)
	} else {
		s.currentIndex++
	}

	s.logger.Debug("command executed", "description", cmd.Description(), "index", s.currentIndex)
	s.notifyLocked()
	return nil
}

// Undo reverts the command at the cursor. It reports false when there is
// nothing to undo.
func (s *CommandStack) Undo(ctx context.Context) (bool, error) {
	s.mu.Lock()

	if s.currentIndex < 0 {
		s.mu.Unlock()
		return false, nil
	}

	cmd := s.history[s.currentIndex]
	if err := cmd.Undo(ctx); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("undoing %q: %w", cmd.Description(), err)
	}
	s.currentIndex--

	s.logger.Debug("command undone", "description", cmd.Description(), "index", s.currentIndex)
	s.notifyLocked()
	return true, nil
}

// Redo re-applies the command after the cursor. It reports false when there
// is nothing to redo.
func (s *CommandStack) Redo(ctx context.Context) (bool, error) {
	s.mu.Lock()

	if s.currentIndex >= len(s.history)-1 {
		s.mu.Unlock()
		return false, nil
	}

	cmd := s.history[s.currentIndex+1]
	if err := redo(ctx, cmd); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("redoing %q: %w", cmd.Description(), err)
	}
	s.currentIndex++

	s.logger.Debug("command redone", "description", cmd.Description(), "index", s.currentIndex)
	s.notifyLocked()
	return true, nil
}

// CanUndo reports whether Undo would do anything
func (s *CommandStack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex >= 0
}

// CanRedo reports whether Redo would do anything
func (s *CommandStack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex < len(s.history)-1
}

// State returns a snapshot of the cursor
func (s *CommandStack) State() StackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Descriptions lists the recorded commands, oldest first
func (s *CommandStack) Descriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.history))
	for i, cmd := range s.history {
		out[i] = cmd.Description()
	}
	return out
}

// Clear drops all history
func (s *CommandStack) Clear() {
	s.mu.Lock()
	s.history = nil
	s.currentIndex = -1
	s.notifyLocked()
}

func (s *CommandStack) stateLocked() StackState {
	return StackState{
		CurrentIndex: s.currentIndex,
		Length:       len(s.history),
		CanUndo:      s.currentIndex >= 0,
		CanRedo:      s.currentIndex < len(s.history)-1,
	}
}

// notifyLocked releases the lock and then calls the listener
func (s *CommandStack) notifyLocked() {
	state := s.stateLocked()
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(state)
	}
}
