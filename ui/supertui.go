package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/nav"
	store "github.com/deemkeen/stegogram/profile"
	"github.com/deemkeen/stegogram/ui/common"
	"github.com/deemkeen/stegogram/ui/feed"
	"github.com/deemkeen/stegogram/ui/forgetpassword"
	"github.com/deemkeen/stegogram/ui/login"
	"github.com/deemkeen/stegogram/ui/setting"
	"github.com/deemkeen/stegogram/ui/signup"
	"github.com/deemkeen/stegogram/ui/tabs"
	"go.uber.org/zap"
)

var (
	formStyle = common.FormStyle.Margin(0, 3)

	alertTitleStyle = lipgloss.NewStyle().Bold(true)
)

// Authenticator is everything the screens need from the auth provider.
type Authenticator interface {
	nav.Source
	login.Authenticator
	signup.Registrar
	forgetpassword.Resetter
	setting.Account
	Account() *domain.Account
}

// ProfileStore serves the profile and feed tabs.
type ProfileStore interface {
	store.Gateway
	feed.Store
}

type Services struct {
	Auth     Authenticator
	Profiles ProfileStore
	Logger   *zap.Logger
}

type transitionMsg nav.Transition

// transitionBridge hands watcher transitions to the program loop one at a
// time, in order. Pushes after close return at once.
type transitionBridge struct {
	ch   chan nav.Transition
	done chan struct{}
	once sync.Once
}

func newTransitionBridge() *transitionBridge {
	return &transitionBridge{
		ch:   make(chan nav.Transition, 16),
		done: make(chan struct{}),
	}
}

func (b *transitionBridge) push(t nav.Transition) {
	select {
	case b.ch <- t:
	case <-b.done:
	}
}

// next waits for one transition. It is re-armed after every transitionMsg,
// so at most one reader exists.
func (b *transitionBridge) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case t := <-b.ch:
			return transitionMsg(t)
		case <-b.done:
			return nil
		}
	}
}

func (b *transitionBridge) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *transitionBridge) close() {
	b.once.Do(func() { close(b.done) })
}

type MainModel struct {
	width   int
	height  int
	svc     Services
	log     *zap.Logger
	watcher *nav.Watcher
	bridge  *transitionBridge
	stack   *nav.Stack
	session domain.Session
	seq     uint64
	alert   *common.AlertMsg

	loginModel  login.Model
	signupModel signup.Model
	forgetModel forgetpassword.Model
	tabsModel   tabs.Model
}

func NewModel(svc Services, width int, height int) MainModel {
	if svc.Logger == nil {
		svc.Logger = zap.NewNop()
	}

	bridge := newTransitionBridge()
	m := MainModel{
		width:   width,
		height:  height,
		svc:     svc,
		log:     svc.Logger,
		bridge:  bridge,
		watcher: nav.NewWatcher(svc.Logger, bridge.push),
		stack:   nav.NewStack(nav.Build(nav.Unauthenticated)),
		session: domain.NoSession,
	}
	m.mountUnauthenticated()
	return m
}

// Close stops watching the session. Safe to call more than once.
func (m MainModel) Close() {
	m.bridge.close()
	m.watcher.Close()
}

func (m MainModel) Init() tea.Cmd {
	watcher, bridge, src := m.watcher, m.bridge, m.svc.Auth
	watch := func() tea.Msg {
		if !bridge.closed() {
			watcher.Watch(src)
		}
		return nil
	}
	return tea.Batch(watch, m.bridge.next(), m.loginModel.Init())
}

// Screen is the screen currently on top of the stack.
func (m MainModel) Screen() nav.Screen {
	return m.stack.Current()
}

// Mounted is the screen set currently mounted.
func (m MainModel) Mounted() nav.ScreenSet {
	return m.stack.Mounted()
}

func (m MainModel) Session() domain.Session {
	return m.session
}

func (m MainModel) Alert() *common.AlertMsg {
	return m.alert
}

func (m MainModel) Tabs() tabs.Model {
	return m.tabsModel
}

func (m *MainModel) mountUnauthenticated() {
	m.loginModel = login.InitialModel(m.svc.Auth)
	m.signupModel = signup.InitialModel(m.svc.Auth)
	m.forgetModel = forgetpassword.InitialModel(m.svc.Auth)
	m.tabsModel = tabs.Model{}
}

func (m *MainModel) mountAuthenticated(acc *domain.Account) {
	svc := tabs.Services{
		Account:  m.svc.Auth,
		Profiles: m.svc.Profiles,
		Feed:     m.svc.Profiles,
		Logger:   m.log,
	}
	m.tabsModel = tabs.InitialModel(m.session, acc, svc, m.width, m.height)
	m.loginModel = login.Model{}
	m.signupModel = signup.Model{}
	m.forgetModel = forgetpassword.Model{}
}

// applyTransition mounts the screen set of t when the session changed. The
// whole tree is swapped in this one update so no frame shows screens of two
// modes.
func (m *MainModel) applyTransition(t nav.Transition) tea.Cmd {
	if t.Seq <= m.seq {
		return nil
	}
	m.seq = t.Seq
	if t.To.Equal(m.session) {
		return nil
	}

	var acc *domain.Account
	if t.Mode == nav.Authenticated {
		// The provider may have moved on since t was produced. Its newer
		// transition is already queued behind this one.
		acc = m.svc.Auth.Account()
		if acc == nil || acc.Id.String() != t.To.UserID() {
			m.log.Debug("skipping superseded transition", zap.Uint64("seq", t.Seq))
			return nil
		}
	}

	m.session = t.To
	m.stack.Mount(t.Screens)
	m.log.Debug("mounted screens",
		zap.Stringer("mode", t.Mode),
		zap.String("entry", string(t.Screens.Entry)),
		zap.Uint64("seq", t.Seq))

	switch t.Mode {
	case nav.Authenticated:
		m.mountAuthenticated(acc)
		return m.tabsModel.Init()
	default:
		m.mountUnauthenticated()
		return m.loginModel.Init()
	}
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case transitionMsg:
		cmd = m.applyTransition(nav.Transition(msg))
		return m, tea.Batch(cmd, m.bridge.next())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.stack.Mounted().Mode == nav.Authenticated {
			m.tabsModel, cmd = m.tabsModel.Update(msg)
		}
		return m, cmd

	case common.AlertMsg:
		m.alert = &msg
		m.log.Debug("alert", zap.String("title", msg.Title), zap.String("text", msg.Text))
		return m, nil

	case common.NavigateMsg:
		if err := m.stack.Push(msg.Screen); err != nil {
			m.log.Warn("navigation refused", zap.Error(err))
			return m, nil
		}
		switch msg.Screen {
		case nav.Signup:
			m.signupModel = signup.InitialModel(m.svc.Auth)
			return m, m.signupModel.Init()
		case nav.ForgetPassword:
			m.forgetModel = forgetpassword.InitialModel(m.svc.Auth)
			return m, m.forgetModel.Init()
		}
		return m, nil

	case common.BackMsg:
		m.stack.Pop()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// alerts never block input, the next key dismisses them
		m.alert = nil

		switch m.stack.Current() {
		case nav.Login:
			m.loginModel, cmd = m.loginModel.Update(msg)
		case nav.Signup:
			m.signupModel, cmd = m.signupModel.Update(msg)
		case nav.ForgetPassword:
			m.forgetModel, cmd = m.forgetModel.Update(msg)
		case nav.Tabs:
			m.tabsModel, cmd = m.tabsModel.Update(msg)
		}
		return m, cmd
	}

	// Route everything else to the models of the mounted set; each model
	// drops results that do not belong to its current activation.
	switch m.stack.Mounted().Mode {
	case nav.Authenticated:
		m.tabsModel, cmd = m.tabsModel.Update(msg)
		cmds = append(cmds, cmd)
	default:
		m.loginModel, cmd = m.loginModel.Update(msg)
		cmds = append(cmds, cmd)
		m.signupModel, cmd = m.signupModel.Update(msg)
		cmds = append(cmds, cmd)
		m.forgetModel, cmd = m.forgetModel.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m MainModel) View() string {
	var s string

	switch m.stack.Current() {
	case nav.Tabs:
		s = m.tabsModel.View()
	case nav.Signup:
		s = m.formView(m.signupModel.View())
	case nav.ForgetPassword:
		s = m.formView(m.forgetModel.View())
	default:
		s = m.formView(m.loginModel.View())
	}

	if m.alert != nil {
		banner := common.AlertStyle.Render(alertTitleStyle.Render(m.alert.Title) + ": " + m.alert.Text)
		s = banner + "\n" + s
	}
	return s
}

func (m MainModel) formView(content string) string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	contentWidth := width - 8
	if contentWidth < 40 {
		contentWidth = 40
	}
	bordered := formStyle.Width(contentWidth).Render(content)
	if m.height <= 0 {
		return bordered
	}
	return lipgloss.Place(width, m.height-1, lipgloss.Center, lipgloss.Center, bordered)
}
