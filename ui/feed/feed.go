package feed

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/ui/common"
	"github.com/deemkeen/stegogram/util"
	"go.uber.org/zap"
)

const (
	PageSize  = 50
	fetchWait = 5 * time.Second
)

var (
	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			MarginBottom(1)

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_MAGENTA)).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
			PaddingLeft(1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY)).
			Italic(true)
)

var ErrInvalidImageURI = errors.New("image uri must be an absolute http(s) url")

// Store is the part of the profile store the feed needs.
type Store interface {
	Feed(ctx context.Context, limit int) ([]domain.FeedItem, error)
	AddPost(ctx context.Context, userID, author, imageURI string) error
}

type Model struct {
	store   Store
	session domain.Session
	author  string
	log     *zap.Logger

	Items      []domain.FeedItem
	Offset     int
	Composing  bool
	input      textinput.Model
	activation common.Activation
	Err        string
	Width      int
	Height     int
}

type feedLoadedMsg struct {
	activation common.Activation
	items      []domain.FeedItem
	err        error
}

type postedMsg struct {
	activation common.Activation
	err        error
}

func InitialModel(s Store, session domain.Session, author string, logger *zap.Logger, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "https://example.com/photo.jpg"
	ti.CharLimit = 2048
	ti.Width = 60

	return Model{
		store:      s,
		session:    session,
		author:     author,
		log:        logger,
		Items:      []domain.FeedItem{},
		input:      ti,
		activation: common.NextActivation(),
		Width:      width,
		Height:     height,
	}
}

func (m Model) Init() tea.Cmd {
	return loadFeed(m.store, m.log, m.activation)
}

func loadFeed(s Store, logger *zap.Logger, activation common.Activation) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchWait)
		defer cancel()
		items, err := s.Feed(ctx, PageSize)
		if err != nil {
			logger.Warn("failed to load feed", zap.Error(err))
		}
		return feedLoadedMsg{activation: activation, items: items, err: err}
	}
}

func post(s Store, logger *zap.Logger, activation common.Activation, userID, author, uri string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchWait)
		defer cancel()
		err := s.AddPost(ctx, userID, author, uri)
		if err != nil {
			logger.Warn("failed to add post", zap.String("user", userID), zap.Error(err))
		}
		return postedMsg{activation: activation, err: err}
	}
}

// ValidateImageURI accepts absolute http and https urls.
func ValidateImageURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidImageURI
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case feedLoadedMsg:
		if msg.activation != m.activation {
			return m, nil
		}
		if msg.err != nil {
			return m, common.AlertCmd("Error", "Failed to load the feed.")
		}
		m.Items = msg.items
		m.Offset = 0
		return m, nil

	case postedMsg:
		if msg.activation != m.activation {
			return m, nil
		}
		if msg.err != nil {
			return m, common.AlertCmd("Error", "Failed to share the image.")
		}
		return m, loadFeed(m.store, m.log, m.activation)

	case tea.KeyMsg:
		if m.Composing {
			return m.updateComposer(msg)
		}
		switch msg.String() {
		case "n":
			m.Composing = true
			m.Err = ""
			m.input.Reset()
			return m, m.input.Focus()
		case "r":
			return m, loadFeed(m.store, m.log, m.activation)
		case "up", "k":
			if m.Offset > 0 {
				m.Offset--
			}
		case "down", "j":
			if len(m.Items) > 0 && m.Offset < len(m.Items)-1 {
				m.Offset++
			}
		}
	}
	return m, nil
}

func (m Model) updateComposer(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Composing = false
		m.input.Blur()
		return m, nil
	case "enter":
		uri := util.NormalizeInput(m.input.Value())
		if err := ValidateImageURI(uri); err != nil {
			m.Err = "Please enter an http(s) link to an image."
			return m, nil
		}
		userID := m.session.UserID()
		if userID == "" {
			return m, nil
		}
		m.Composing = false
		m.Err = ""
		m.input.Blur()
		return m, post(m.store, m.log, m.activation, userID, m.author, uri)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("feed (%d)", len(m.Items))))
	s.WriteString("\n")

	if m.Composing {
		s.WriteString("Share an image by link:\n")
		s.WriteString(m.input.View())
		s.WriteString("\n")
		if m.Err != "" {
			s.WriteString(common.ErrorStyle.Render(m.Err))
			s.WriteString("\n")
		}
		s.WriteString(common.HelpStyle.Render("(enter to post, esc to cancel)"))
		s.WriteString("\n\n")
	}

	if len(m.Items) == 0 {
		s.WriteString(emptyStyle.Render("Nothing here yet. Press n to share the first image!"))
	} else {
		perPage := 5
		if m.Height > 0 {
			perPage = max(1, (m.Height-10)/4)
		}
		start := min(m.Offset, len(m.Items)-1)
		end := min(len(m.Items), start+perPage)
		for i := start; i < end; i++ {
			item := m.Items[i]
			body := fmt.Sprintf("%s  %s\n%s",
				authorStyle.Render("@"+item.Author),
				common.MutedStyle.Render(item.CreatedAt.Local().Format(util.DateTimeFormat())),
				item.ImageURI)
			if i == m.Offset {
				s.WriteString(itemStyle.Render(selectedStyle.Render(body)))
			} else {
				s.WriteString(itemStyle.Render(body))
			}
			s.WriteString("\n")
		}
	}

	if !m.Composing {
		s.WriteString("\n")
		s.WriteString(common.HelpStyle.Render("(n new post, r reload, ↑/↓ scroll, tab switch)"))
	}
	return s.String()
}
