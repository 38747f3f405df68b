package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"pagefind/internal/config"
	"pagefind/internal/dom"
	"pagefind/internal/domain"
	"pagefind/internal/search"
	"pagefind/internal/ui/input"
	inputtypes "pagefind/internal/ui/input/types"
	"pagefind/internal/ui/views"
)

// chromeHeight is the number of lines around the outline: header, search
// bar, tooltip, status and help footer.
const chromeHeight = 5

// Model is the terminal host of the search controller: it delivers typed
// queries and navigation keys, renders the search panel and draws the
// current match in a document outline.
type Model struct {
	doc    *dom.Document
	config *config.Config
	logger *zerolog.Logger

	width          int
	height         int
	help           help.Model
	viewport       viewport.Model
	renderer       *views.Renderer
	inputHandler   *input.Handler
	helpRenderer   *HelpRenderer
	inPagerMode    bool
	showInlineHelp bool
	status         string
	statusErr      bool

	outline        []views.OutlineLine
	outlineVersion uint64
	outlineBuilt   bool
	lastCurrent    *html.Node

	// Host state, touched by the controller from its own goroutines
	hostMu  sync.Mutex
	onInput func(string)
	onKey   func(search.KeyEvent) bool
	panel   search.Panel
	program *tea.Program

	// Highlight state, written while the controller holds its lock
	hlMu      sync.Mutex
	highlight *search.HighlightEntry
}

// NewModel creates a new UI model for doc
func NewModel(doc *dom.Document, cfg *config.Config, logger *zerolog.Logger) *Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Model{
		doc:          doc,
		config:       cfg,
		logger:       logger,
		help:         help.New(),
		viewport:     viewport.New(80, 20),
		renderer:     views.NewRenderer(views.NewStyles(cfg.SearchConfig().MatchColor())),
		inputHandler: input.New(),
		helpRenderer: NewHelpRenderer(),
	}
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	m.hostMu.Lock()
	defer m.hostMu.Unlock()
	m.program = p
}

// AddInputListener implements search.Host.
func (m *Model) AddInputListener(fn func(query string)) func() {
	m.hostMu.Lock()
	defer m.hostMu.Unlock()
	m.onInput = fn
	return func() {
		m.hostMu.Lock()
		defer m.hostMu.Unlock()
		m.onInput = nil
	}
}

// AddKeyListener implements search.Host.
func (m *Model) AddKeyListener(fn func(search.KeyEvent) bool) func() {
	m.hostMu.Lock()
	defer m.hostMu.Unlock()
	m.onKey = fn
	return func() {
		m.hostMu.Lock()
		defer m.hostMu.Unlock()
		m.onKey = nil
	}
}

// Mount implements search.Host.
func (m *Model) Mount(panel search.Panel) func() {
	m.hostMu.Lock()
	defer m.hostMu.Unlock()
	m.panel = panel
	return func() {
		m.hostMu.Lock()
		defer m.hostMu.Unlock()
		m.panel = nil
	}
}

// Refresh implements search.Host. It never blocks: the controller may call
// it from a timer goroutine while the program is busy.
func (m *Model) Refresh() {
	m.hostMu.Lock()
	p := m.program
	m.hostMu.Unlock()
	if p != nil {
		go p.Send(refreshMsg{})
	}
}

// UpdateHighlight implements search.Highlighter.
func (m *Model) UpdateHighlight(entries []search.HighlightEntry) {
	m.hlMu.Lock()
	defer m.hlMu.Unlock()
	if len(entries) == 0 {
		m.highlight = nil
		return
	}
	entry := entries[0]
	m.highlight = &entry
}

// ClearHighlight implements search.Highlighter.
func (m *Model) ClearHighlight() {
	m.hlMu.Lock()
	defer m.hlMu.Unlock()
	m.highlight = nil
}

func (m *Model) currentHighlight() search.HighlightEntry {
	m.hlMu.Lock()
	defer m.hlMu.Unlock()
	if m.highlight == nil {
		return search.HighlightEntry{}
	}
	return *m.highlight
}

func (m *Model) searchView() search.View {
	m.hostMu.Lock()
	panel := m.panel
	m.hostMu.Unlock()
	if panel == nil {
		return search.View{}
	}
	return panel.View()
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	m.syncOutline()
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = max(3, msg.Height-chromeHeight)
		m.syncOutline()
		return m, nil

	case tea.KeyMsg:
		if m.showInlineHelp {
			switch msg.String() {
			case "esc", "q", "?", "f1":
				m.showInlineHelp = false
			}
			return m, nil
		}

		actions, cmd := m.inputHandler.HandleKey(msg)
		cmds := []tea.Cmd{cmd}
		for _, action := range actions {
			cmds = append(cmds, m.processAction(action))
		}
		return m, tea.Batch(cmds...)

	case refreshMsg:
		m.syncOutline()
		return m, nil

	case EventMsg:
		return m, m.handleEvent(msg.Event)

	case helpPagerMsg:
		if msg.err != nil {
			// Pager failed, fall back to the inline help
			m.logger.Warn().Err(msg.err).Msg("help pager failed")
			m.showInlineHelp = true
		}
		return m, nil

	case pauseRenderingMsg:
		m.inPagerMode = true
		return m, nil

	case resumeRenderingMsg:
		m.inPagerMode = false
		return m, nil

	case clearStatusMsg:
		m.status = ""
		m.statusErr = false
		return m, nil
	}

	return m, m.inputHandler.Update(msg)
}

// processAction processes an action from the input handler
func (m *Model) processAction(action inputtypes.Action) tea.Cmd {
	switch a := action.(type) {
	case inputtypes.UpdateTextAction:
		m.hostMu.Lock()
		fn := m.onInput
		m.hostMu.Unlock()
		if fn != nil {
			fn(a.Text)
		}

	case inputtypes.SearchKeyAction:
		m.hostMu.Lock()
		fn := m.onKey
		m.hostMu.Unlock()
		if fn != nil && fn(a.Key) {
			m.syncOutline()
		}

	case inputtypes.ScrollAction:
		if a.Lines == 0 {
			m.centerOnCurrent()
		} else {
			m.viewport.SetYOffset(m.viewport.YOffset + a.Lines)
		}

	case inputtypes.ShowHelpAction:
		m.hostMu.Lock()
		p := m.program
		m.hostMu.Unlock()
		if p == nil {
			m.showInlineHelp = true
			return nil
		}
		return m.fetchHelpPager(p, m.helpRenderer.RenderHelpContent())

	case inputtypes.QuitAction:
		return tea.Quit
	}
	return nil
}

func (m *Model) handleEvent(event domain.DomainEvent) tea.Cmd {
	switch e := event.(type) {
	case domain.DocumentReloadedEvent:
		m.status = fmt.Sprintf("reloaded %s (v%d)", e.Source, e.Version)
		m.statusErr = false
		m.syncOutline()
	case domain.ErrorEvent:
		m.status = e.Message
		if e.Err != nil {
			m.status += ": " + e.Err.Error()
		}
		m.statusErr = true
	default:
		return nil
	}
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

// fetchHelpPager returns a command that shows help using ov pager
func (m *Model) fetchHelpPager(p *tea.Program, helpContent string) tea.Cmd {
	return func() tea.Msg {
		p.Send(pauseRenderingMsg{})
		err := NewHelpOps(p).ShowHelpInPager(helpContent)
		p.Send(resumeRenderingMsg{})
		return helpPagerMsg{err: err}
	}
}

// syncOutline rebuilds the outline when the document changed and keeps the
// current match in view when it moved.
func (m *Model) syncOutline() {
	if m.doc == nil {
		return
	}
	current := m.currentHighlight().Element

	version := m.doc.Version()
	rebuilt := !m.outlineBuilt || version != m.outlineVersion
	if rebuilt {
		m.doc.Read(func(root *html.Node) {
			m.outline = views.BuildOutline(dom.Body(root), m.config.UI.OutlineTextWidth)
		})
		m.outlineVersion = version
		m.outlineBuilt = true
	}

	content, line := views.RenderOutline(m.outline, current, m.renderer.Styles())
	m.viewport.SetContent(content)
	if line >= 0 && (current != m.lastCurrent || rebuilt) {
		m.viewport.SetYOffset(line - m.viewport.Height/2)
	}
	m.lastCurrent = current
}

func (m *Model) centerOnCurrent() {
	current := m.currentHighlight().Element
	for i, l := range m.outline {
		if l.Node == current && current != nil {
			m.viewport.SetYOffset(i - m.viewport.Height/2)
			return
		}
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.inPagerMode {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	sv := m.searchView()
	hl := m.currentHighlight()

	outline := m.viewport.View()
	if m.showInlineHelp {
		outline = m.helpRenderer.RenderHelpContent()
	}

	source := ""
	if m.doc != nil {
		source = m.doc.Source()
	}
	return m.renderer.Render(views.ViewState{
		Width:     m.width,
		Source:    source,
		InputMode: m.inputHandler.ModeName(),
		Input:     m.inputHandler.TextInput().View(),
		Search:    sv,
		Tooltip:   hl.Tooltip,
		Outline:   outline,
		Status:    m.status,
		StatusErr: m.statusErr,
		Help:      m.help.View(m.inputHandler.Keys()),
	})
}
