package deleteaccount

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/stegogram/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	calls int
	err   error
}

func (f *fakeDeleter) DeleteAccount(context.Context) error {
	f.calls++
	return f.err
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmSteps(t *testing.T) {
	tests := []struct {
		name      string
		keys      []string
		wantStep  int
		wantCalls int
	}{
		{"first yes asks again", []string{"y"}, 1, 0},
		{"second yes deletes", []string{"y", "Y"}, 1, 1},
		{"no resets", []string{"y", "n"}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeDeleter{}
			m := InitialModel(f, &domain.Account{Username: "alice"})
			for _, k := range tt.keys {
				var cmd tea.Cmd
				m, cmd = m.Update(key(k))
				if cmd != nil {
					m, _ = m.Update(cmd())
				}
			}
			assert.Equal(t, tt.wantStep, m.ConfirmStep)
			assert.Equal(t, tt.wantCalls, f.calls)
		})
	}
}

func TestCancelEmitsCancelled(t *testing.T) {
	m := InitialModel(&fakeDeleter{}, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelledMsg{}, cmd())
}

func TestFailureShowsError(t *testing.T) {
	f := &fakeDeleter{err: errors.New("boom")}
	m := InitialModel(f, &domain.Account{Username: "alice"})

	m, _ = m.Update(key("y"))
	m, cmd := m.Update(key("y"))
	require.True(t, m.Deleting)
	require.NotNil(t, cmd)

	m, _ = m.Update(cmd())
	assert.False(t, m.Deleting)
	assert.Zero(t, m.ConfirmStep)
	assert.Contains(t, m.View(), "Failed to delete account")
}

func TestKeysIgnoredWhileDeleting(t *testing.T) {
	m := InitialModel(&fakeDeleter{}, nil)
	m.Deleting = true
	m, cmd := m.Update(key("n"))
	assert.Nil(t, cmd)
	assert.True(t, m.Deleting)
	assert.Contains(t, m.View(), "Deleting account")
}
