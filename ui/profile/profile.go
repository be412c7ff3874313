// Package profile is the profile tab: the signed-in user's record and the
// images they posted.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/nav"
	store "github.com/deemkeen/stegogram/profile"
	"github.com/deemkeen/stegogram/ui/common"
	"go.uber.org/zap"
)

const (
	AlertTitle = "Error"
	AlertText  = "Failed to load profile data."

	gridColumns = 3
)

var (
	statStyle = lipgloss.NewStyle().
			Align(lipgloss.Center).
			Width(12).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
			Padding(0, 1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY)).
			Italic(true)
)

type Model struct {
	gateway store.Gateway
	session domain.Session
	log     *zap.Logger

	Record     domain.ProfileRecord
	activation common.Activation
	mounted    bool
	loading    bool
	Offset     int
	Width      int
	Height     int
}

type loadedMsg struct {
	activation common.Activation
	record     domain.ProfileRecord
	err        error
}

func InitialModel(gw store.Gateway, session domain.Session, logger *zap.Logger, width, height int) Model {
	return Model{
		gateway: gw,
		session: session,
		log:     logger,
		Record:  domain.EmptyProfile(),
		Width:   width,
		Height:  height,
	}
}

// Activate mounts the screen and starts the single profile read of this
// activation.
func (m Model) Activate() (Model, tea.Cmd) {
	m.activation = common.NextActivation()
	m.mounted = true
	m.Offset = 0
	if m.session.IsNone() {
		m.loading = false
		return m, nil
	}
	m.loading = true
	return m, load(m.gateway, m.session, m.log, m.activation)
}

// Deactivate unmounts the screen; in-flight reads are dropped on arrival.
func (m Model) Deactivate() Model {
	m.mounted = false
	m.loading = false
	return m
}

func (m Model) Mounted() bool {
	return m.mounted
}

func load(gw store.Gateway, session domain.Session, logger *zap.Logger, activation common.Activation) tea.Cmd {
	return func() tea.Msg {
		rec, err := store.Load(context.Background(), gw, session, logger)
		return loadedMsg{activation: activation, record: rec, err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if !m.mounted || msg.activation != m.activation {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			if errors.Is(msg.err, store.ErrNoSession) {
				return m, nil
			}
			return m, common.AlertCmd(AlertTitle, AlertText)
		}
		m.Record = msg.record
		m.Offset = 0
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "s":
			return m, common.SelectTabCmd(nav.Setting)
		case "r":
			return m.Activate()
		case "up", "k":
			if m.Offset > 0 {
				m.Offset--
			}
		case "down", "j":
			rows := (len(m.Record.PostsImages) + gridColumns - 1) / gridColumns
			if m.Offset < rows-1 {
				m.Offset++
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	name := m.Record.Username
	if name == "" {
		name = "-"
	}
	s.WriteString(common.CaptionStyle.Render(name))
	s.WriteString("\n")

	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		stat("posts", m.Record.Posts),
		stat("followers", m.Record.Followers),
		stat("following", m.Record.Following),
		stat("likes", m.Record.Likes),
	)
	s.WriteString(stats)
	s.WriteString("\n\n")

	if m.loading {
		s.WriteString(emptyStyle.Render("loading profile..."))
		s.WriteString("\n")
	}

	if len(m.Record.PostsImages) == 0 {
		s.WriteString(emptyStyle.Render("No posts yet. Share an image from the feed with n."))
	} else {
		s.WriteString(m.grid())
	}

	s.WriteString("\n\n")
	s.WriteString(common.HelpStyle.Render("(s settings, r reload, ↑/↓ scroll, tab switch)"))
	return s.String()
}

func stat(label string, n int) string {
	return statStyle.Render(fmt.Sprintf("%d\n%s", n, label))
}

func (m Model) grid() string {
	cellWidth := (common.DefaultWindowWidth(m.Width) / gridColumns) - 4
	if cellWidth < 10 {
		cellWidth = 10
	}

	var rows []string
	images := m.Record.PostsImages
	for i := 0; i < len(images); i += gridColumns {
		var cells []string
		for j := i; j < i+gridColumns && j < len(images); j++ {
			cells = append(cells, cellStyle.Width(cellWidth).MaxHeight(4).Render(truncate(images[j], cellWidth)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	visible := 3
	if m.Height > 0 {
		visible = max(1, (m.Height-12)/4)
	}
	offset := min(m.Offset, len(rows)-1)
	end := min(len(rows), offset+visible)
	return lipgloss.JoinVertical(lipgloss.Left, rows[offset:end]...)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
