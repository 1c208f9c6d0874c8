// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/jeranaias/docchat/internal/logging"
	"github.com/jeranaias/docchat/internal/notify"
	"github.com/jeranaias/docchat/internal/session"
	"github.com/jeranaias/docchat/internal/ui/styles"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// header + input box + status bar
	chromeHeight = 6

	inputCharLimit = 4000
)

// Options configures the chat screen. Controller is required.
type Options struct {
	Controller *session.Controller
	// Center collects notifications; the same center should be the
	// controller's notifier so failures show up as toasts.
	Center   *notify.Center
	Markdown bool
	Logger   *zap.Logger
}

// subscription bridges controller callbacks into the update loop.
type subscription struct {
	views       chan session.View
	unsubscribe func()
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctrl   *session.Controller
	center *notify.Center
	log    *zap.Logger
	sub    *subscription

	theme  *styles.Theme
	keyMap KeyMap

	width  int
	height int

	// Latest controller snapshot
	view  session.View
	ready bool

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model

	markdown bool
	renderer *glamour.TermRenderer

	confirmingClear bool
	showHelp        bool
	authExpired     bool
}

// New creates the chat screen and subscribes to the controller.
func New(opts Options) Model {
	center := opts.Center
	if center == nil {
		center = notify.NewCenter()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about your documents..."
	ti.CharLimit = inputCharLimit
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Line

	m := Model{
		ctrl:     opts.Controller,
		center:   center,
		log:      logging.OrNop(opts.Logger),
		theme:    styles.NewTheme(),
		keyMap:   DefaultKeyMap(),
		input:    ti,
		spinner:  sp,
		help:     help.New(),
		markdown: opts.Markdown,
	}
	m.input.PromptStyle = m.theme.InputPrompt
	m.spinner.Style = m.theme.Thinking

	views := make(chan session.View, 1)
	m.sub = &subscription{views: views}
	m.sub.unsubscribe = opts.Controller.Subscribe(func(v session.View) {
		// keep only the newest snapshot
		select {
		case <-views:
		default:
		}
		select {
		case views <- v:
		default:
		}
	})

	m.resize(defaultWidth, defaultHeight)
	m.view = opts.Controller.Snapshot()
	m.refreshContent()
	return m
}

// Init starts the session and the background ticks.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		initCmd(m.ctrl),
		waitForView(m.sub.views),
		toastTick(),
	)
}

// AuthExpired reports whether the screen closed because the session expired.
func (m Model) AuthExpired() bool {
	return m.authExpired
}

// Close unsubscribes from the controller.
func (m Model) Close() {
	if m.sub != nil && m.sub.unsubscribe != nil {
		m.sub.unsubscribe()
	}
}

// resize lays out the viewport and rebuilds the markdown renderer for the
// new wrap width.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	vpHeight := height - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 6
	m.help.Width = width

	m.renderer = nil
	if m.markdown {
		style := "light"
		if m.theme.IsDark {
			style = "dark"
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(m.bubbleWidth()),
		)
		if err != nil {
			m.log.Warn("markdown renderer unavailable", zap.Error(err))
		} else {
			m.renderer = r
		}
	}
}

// bubbleWidth is the wrap width for turn content.
func (m Model) bubbleWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// refreshContent re-renders the transcript and keeps the bottom in view.
func (m *Model) refreshContent() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom || m.view.Pending {
		m.viewport.GotoBottom()
	}
}
