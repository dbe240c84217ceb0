// Package ui provides the call board: a consent screen that unlocks audio,
// followed by the read-only board showing the current and recent calls.
package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/callboard/internal/announce"
	"github.com/dgnsrekt/callboard/internal/calls"
	"github.com/dgnsrekt/callboard/internal/feed"
	"github.com/dgnsrekt/callboard/internal/store"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultWidth = 60

// NewProgram wires the store, speech and feed reader into a Tea program. The
// returned function releases everything once the program has exited.
func NewProgram(cfg Config) (*tea.Program, func() error, error) {
	if cfg.Key == "" {
		cfg.Key = store.DefaultKey
	}
	log.Debug("Starting callboard", "store", cfg.StoreDir, "key", cfg.Key, "locale", cfg.Locale)

	s, err := store.Open(cfg.StoreDir)
	if err != nil {
		return nil, nil, err
	}
	watcher, err := store.NewWatcher(s, cfg.Settle)
	if err != nil {
		return nil, nil, err
	}

	speaker, speechCloser, engineName := newSpeaker(cfg)
	announcer := announce.New(speaker, cfg.Locale, cfg.Volume)
	reader := feed.New(s, cfg.Key, announcer)

	m := newModel(cfg, reader, watcher, announcer)
	m.storePath = s.Path(cfg.Key)
	m.engine = engineName

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)
	reader.OnView(func(v calls.View) { p.Send(viewMsg(v)) })

	cleanup := func() error {
		reader.Deactivate()
		return closeAll(watcher, speechCloser)
	}
	return p, cleanup, nil
}

func closeAll(closers ...io.Closer) error {
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// feedReader is the part of feed.Reader the board drives.
type feedReader interface {
	Activate(n feed.Notifier) error
	Deactivate()
	Refresh() calls.View
}

// unlocker is the consent gate as seen from the keyboard.
type unlocker interface {
	RequestUnlock() bool
	Locked() bool
}

type (
	viewMsg  calls.View
	blinkMsg struct{}
	errMsg   struct{ err error }
)

func (e errMsg) Error() string { return e.err.Error() }

// state is the top-level application state.
type state int

const (
	stateLocked state = iota
	stateBoard
)

func (s state) String() string {
	return map[state]string{
		stateLocked: "waiting for consent",
		stateBoard:  "showing board",
	}[s]
}

type model struct {
	cfg      Config
	reader   feedReader
	notifier feed.Notifier
	gate     unlocker

	state   state
	view    calls.View
	spinner spinner.Model
	blinkOn bool
	upper   cases.Caser
	now     func() time.Time
	err     error

	width, height int
	storePath     string
	engine        string
}

func newModel(cfg Config, reader feedReader, notifier feed.Notifier, gate unlocker) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	st := stateLocked
	if !gate.Locked() {
		st = stateBoard
	}

	return model{
		cfg:      cfg,
		reader:   reader,
		notifier: notifier,
		gate:     gate,
		state:    st,
		view:     calls.DeriveView(nil),
		spinner:  sp,
		blinkOn:  true,
		upper:    cases.Upper(parseLocale(cfg.Locale)),
		now:      time.Now,
		width:    defaultWidth,
	}
}

func parseLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und
	}
	return tag
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.activate, m.spinner.Tick, m.blink())
}

// activate subscribes the reader; its eager refresh reaches the model
// through the view listener.
func (m model) activate() tea.Msg {
	if err := m.reader.Activate(m.notifier); err != nil {
		return errMsg{fmt.Errorf("unable to watch store: %w", err)}
	}
	return nil
}

func (m model) refresh() tea.Msg {
	return viewMsg(m.reader.Refresh())
}

func (m model) blink() tea.Cmd {
	interval := m.cfg.BlinkInterval
	if interval <= 0 {
		interval = 700 * time.Millisecond
	}
	return tea.Tick(interval, func(time.Time) tea.Msg { return blinkMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.reader.Deactivate()
			return m, tea.Quit
		case "enter", " ", "space":
			if m.state == stateLocked {
				m.gate.RequestUnlock()
				m.state = stateBoard
				log.Debug("board unlocked")
			}
			return m, nil
		case "r":
			return m, m.refresh
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case viewMsg:
		m.view = calls.View(msg)
		m.err = nil

	case blinkMsg:
		m.blinkOn = !m.blinkOn
		return m, m.blink()

	case errMsg:
		log.Error("board error", "error", msg.err)
		m.err = msg.err

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	switch m.state {
	case stateLocked:
		return m.lockedView()
	default:
		return m.boardView()
	}
}
