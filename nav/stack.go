package nav

import (
	"errors"
	"fmt"
)

var ErrScreenNotReachable = errors.New("screen not reachable in current mode")

// Stack is the mounted screen history. It only ever holds screens of the
// mounted set; mounting a new set discards the whole history.
type Stack struct {
	set   ScreenSet
	items []Screen
}

// NewStack returns a stack with set mounted.
func NewStack(set ScreenSet) *Stack {
	s := &Stack{}
	s.Mount(set)
	return s
}

// Mount replaces the mounted set and resets history to its entry screen.
func (s *Stack) Mount(set ScreenSet) {
	s.set = set
	s.items = []Screen{set.Entry}
}

// Push navigates to screen within the mounted set.
func (s *Stack) Push(screen Screen) error {
	if !s.set.Contains(screen) {
		return fmt.Errorf("%s in %s mode: %w", screen, s.set.Mode, ErrScreenNotReachable)
	}
	if s.Current() == screen {
		return nil
	}
	s.items = append(s.items, screen)
	return nil
}

// Pop goes back one screen. The entry screen is never popped; Pop reports
// whether it moved.
func (s *Stack) Pop() bool {
	if len(s.items) <= 1 {
		return false
	}
	s.items = s.items[:len(s.items)-1]
	return true
}

func (s *Stack) Current() Screen {
	return s.items[len(s.items)-1]
}

func (s *Stack) Mounted() ScreenSet {
	return s.set
}

func (s *Stack) Len() int {
	return len(s.items)
}

// History returns a copy of the stack, bottom first.
func (s *Stack) History() []Screen {
	return append([]Screen(nil), s.items...)
}
