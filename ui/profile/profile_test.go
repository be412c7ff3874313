package profile

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/nav"
	store "github.com/deemkeen/stegogram/profile"
	"github.com/deemkeen/stegogram/ui/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGateway struct {
	calls atomic.Int32
	raw   domain.ProfileRecordRaw
	err   error
}

func (g *stubGateway) Get(_ context.Context, _ string) (domain.ProfileRecordRaw, error) {
	g.calls.Add(1)
	return g.raw, g.err
}

func ptr[T any](v T) *T {
	return &v
}

// run executes cmd and feeds its message back, collecting the alerts emitted.
func run(m Model, cmd tea.Cmd) (Model, []common.AlertMsg) {
	var alerts []common.AlertMsg
	for cmd != nil {
		msg := cmd()
		if alert, ok := msg.(common.AlertMsg); ok {
			alerts = append(alerts, alert)
			break
		}
		m, cmd = m.Update(msg)
	}
	return m, alerts
}

func TestActivateLoadsRecord(t *testing.T) {
	gw := &stubGateway{raw: domain.ProfileRecordRaw{
		Username:    ptr("u1"),
		Posts:       ptr(2),
		Likes:       ptr(-4),
		PostsImages: []string{"https://img/1", "https://img/2"},
	}}
	m := InitialModel(gw, domain.SignedIn("u1"), zap.NewNop(), 100, 40)

	m, cmd := m.Activate()
	m, alerts := run(m, cmd)

	assert.Empty(t, alerts)
	assert.Equal(t, int32(1), gw.calls.Load())
	assert.Equal(t, "u1", m.Record.Username)
	assert.Equal(t, 2, m.Record.Posts)
	assert.Equal(t, 0, m.Record.Likes)
	assert.Equal(t, 0, m.Record.Followers)
	assert.Equal(t, []string{"https://img/1", "https://img/2"}, m.Record.PostsImages)
	assert.Contains(t, m.View(), "https://img/1")
}

func TestNotFoundShowsDefaultsAndOneAlert(t *testing.T) {
	gw := &stubGateway{err: store.ErrNotFound}
	m := InitialModel(gw, domain.SignedIn("u1"), zap.NewNop(), 100, 40)

	var cmd tea.Cmd
	require.NotPanics(t, func() {
		m, cmd = m.Activate()
	})
	m, alerts := run(m, cmd)

	require.Len(t, alerts, 1)
	assert.Equal(t, common.AlertMsg{Title: AlertTitle, Text: AlertText}, alerts[0])
	assert.Equal(t, domain.EmptyProfile(), m.Record)
	assert.NotPanics(t, func() { _ = m.View() })
}

func TestFailureKeepsPreviousRecord(t *testing.T) {
	gw := &stubGateway{raw: domain.ProfileRecordRaw{Username: ptr("u1"), Posts: ptr(3)}}
	m := InitialModel(gw, domain.SignedIn("u1"), zap.NewNop(), 100, 40)
	m, cmd := m.Activate()
	m, _ = run(m, cmd)
	require.Equal(t, 3, m.Record.Posts)

	gw.err = fmt.Errorf("redis down")
	m, cmd = m.Activate()
	m, alerts := run(m, cmd)

	assert.Len(t, alerts, 1)
	assert.Equal(t, "u1", m.Record.Username)
	assert.Equal(t, 3, m.Record.Posts)
}

func TestNoSessionSkipsFetch(t *testing.T) {
	gw := &stubGateway{}
	m := InitialModel(gw, domain.NoSession, zap.NewNop(), 100, 40)

	m, cmd := m.Activate()

	assert.Nil(t, cmd)
	assert.Equal(t, int32(0), gw.calls.Load())
	assert.Equal(t, domain.EmptyProfile(), m.Record)
}

func TestStaleResultDiscarded(t *testing.T) {
	gw := &stubGateway{raw: domain.ProfileRecordRaw{Username: ptr("first")}}
	m := InitialModel(gw, domain.SignedIn("u1"), zap.NewNop(), 100, 40)

	m, first := m.Activate()
	staleMsg := first()

	gw.raw = domain.ProfileRecordRaw{Username: ptr("second")}
	m, second := m.Activate()

	m, cmd := m.Update(staleMsg)
	assert.Nil(t, cmd)
	assert.Equal(t, "", m.Record.Username)

	m, _ = run(m, second)
	assert.Equal(t, "second", m.Record.Username)
}

func TestResultAfterDeactivateDiscarded(t *testing.T) {
	gw := &stubGateway{err: store.ErrNotFound}
	m := InitialModel(gw, domain.SignedIn("u1"), zap.NewNop(), 100, 40)

	m, cmd := m.Activate()
	msg := cmd()
	m = m.Deactivate()

	m, cmd = m.Update(msg)
	assert.Nil(t, cmd)
	assert.False(t, m.Mounted())
}

func TestSettingsKeySelectsSettingTab(t *testing.T) {
	m := InitialModel(&stubGateway{}, domain.SignedIn("u1"), zap.NewNop(), 100, 40)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	require.NotNil(t, cmd)
	assert.Equal(t, common.SelectTabMsg{Screen: nav.Setting}, cmd())
}
