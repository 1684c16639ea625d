package viewer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/domain/mention"
	"github.com/kailas-cloud/lorelink/internal/domain/tooltip"
)

const (
	// DefaultDebounce is the delay between a target change and its preview fetch.
	DefaultDebounce = 150 * time.Millisecond
	// DefaultBoxWidth is the preview box width in cells.
	DefaultBoxWidth = 44
	// DefaultBoxHeight is the preview box height in rows, border included.
	DefaultBoxHeight = 9

	headerHeight = 1
	footerHeight = 1
	fetchTimeout = 10 * time.Second
	scrollStep   = 3
)

const noPreview = "no preview available"

type (
	pageMsg struct {
		page Page
		push bool
		err  error
	}
	targetChangedMsg struct{}
	fetchTickMsg     struct{ token uint64 }
	previewMsg       struct {
		token   uint64
		preview Preview
		err     error
	}
)

// Option configures a Model.
type Option func(*Model)

// WithClock replaces the wall clock of the preview controller.
func WithClock(c tooltip.Clock) Option {
	return func(m *Model) { m.ctlOpts = append(m.ctlOpts, tooltip.WithClock(c)) }
}

// WithGracePeriod sets the delay between leaving a reference and the preview closing.
func WithGracePeriod(d time.Duration) Option {
	return func(m *Model) { m.ctlOpts = append(m.ctlOpts, tooltip.WithGracePeriod(d)) }
}

// WithDebounce sets the preview fetch delay. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// WithLogger sets the logger. The terminal is owned by the UI, so it should write to a file.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStartPage opens the entity page on Init.
func WithStartPage(entityID string) Option {
	return func(m *Model) { m.startID = entityID }
}

// WithText shows free text, annotated through the source, instead of an entity page.
func WithText(title, text string) Option {
	return func(m *Model) { m.startTitle, m.startText = title, text }
}

// Model is the bubbletea model of the viewer.
type Model struct {
	source   Source
	ctl      *tooltip.Controller
	ctlOpts  []tooltip.ControllerOption
	changes  chan struct{}
	debounce time.Duration
	boxW     int
	boxH     int
	styles   Styles
	keys     keyMap
	help     help.Model
	vp       viewport.Model
	logger   *zap.Logger

	startID    string
	startTitle string
	startText  string

	width, height int
	page          Page
	history       []Page
	layout        layout
	status        string

	hover int
	inBox bool

	target     tooltip.Target
	hasTarget  bool
	token      uint64
	preview    *Preview
	previewErr error
}

// New creates a viewer over source.
func New(source Source, opts ...Option) *Model {
	m := &Model{
		source:   source,
		changes:  make(chan struct{}, 1),
		debounce: DefaultDebounce,
		boxW:     DefaultBoxWidth,
		boxH:     DefaultBoxHeight,
		styles:   NewStyles(),
		keys:     defaultKeyMap(),
		help:     help.New(),
		vp:       viewport.New(0, 0),
		logger:   zap.NewNop(),
		hover:    -1,
	}
	for _, opt := range opts {
		opt(m)
	}

	ctlOpts := append([]tooltip.ControllerOption{
		tooltip.WithResolver(tooltip.Resolver{Offset: 1, Padding: m.boxW / 2}),
		tooltip.WithOnChange(func(tooltip.Target, bool) { m.notify() }),
	}, m.ctlOpts...)
	m.ctl = tooltip.NewController(ctlOpts...)
	return m
}

// Controller exposes the preview controller.
func (m *Model) Controller() *tooltip.Controller { return m.ctl }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	var load tea.Cmd
	switch {
	case m.startText != "":
		load = m.loadText(m.startTitle, m.startText)
	case m.startID != "":
		load = m.loadPage(m.startID, true)
	}
	return tea.Batch(load, m.waitForChange())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case pageMsg:
		if msg.err != nil {
			m.logger.Warn("Failed to load page", zap.Error(msg.err))
			m.status = fmt.Sprintf("failed to load page: %v", msg.err)
			return m, nil
		}
		if msg.push && m.page.Title != "" {
			m.history = append(m.history, m.page)
		}
		m.page = msg.page
		m.status = ""
		m.hover, m.inBox = -1, false
		m.ctl.Close()
		m.vp.GotoTop()
		m.refresh()
		return m, m.syncTarget()

	case targetChangedMsg:
		return m, tea.Batch(m.syncTarget(), m.waitForChange())

	case fetchTickMsg:
		if msg.token != m.token || !m.hasTarget {
			return m, nil
		}
		return m, m.fetchPreview(msg.token, m.target)

	case previewMsg:
		if msg.token != m.token {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Debug("Preview fetch failed",
				zap.String("entity_id", m.target.EntityID),
				zap.Error(msg.err),
			)
			m.previewErr = msg.err
			return m, nil
		}
		p := msg.preview
		m.preview = &p
		return m, nil

	case tea.MouseMsg:
		return m, m.handleMouse(tea.MouseEvent(msg))

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctl.Dispose()
		return tea.Quit
	case key.Matches(msg, m.keys.Close):
		m.ctl.Close()
		return m.syncTarget()
	case key.Matches(msg, m.keys.Follow):
		if m.hasTarget && m.target.Pinned {
			return m.loadPage(m.target.EntityID, true)
		}
		return nil
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Up):
		return m.scroll(-1)
	case key.Matches(msg, m.keys.Down):
		return m.scroll(1)
	case key.Matches(msg, m.keys.PageUp):
		return m.scroll(-m.vp.Height)
	case key.Matches(msg, m.keys.PageDown):
		return m.scroll(m.vp.Height)
	}
	return nil
}

func (m *Model) handleMouse(ev tea.MouseEvent) tea.Cmd {
	switch {
	case ev.Button == tea.MouseButtonWheelUp:
		return m.scroll(-scrollStep)
	case ev.Button == tea.MouseButtonWheelDown:
		return m.scroll(scrollStep)
	case ev.Action == tea.MouseActionMotion:
		return m.pointerMove(ev.X, ev.Y)
	case ev.Action == tea.MouseActionPress && ev.Button == tea.MouseButtonLeft:
		return m.pointerClick(ev.X, ev.Y)
	}
	return nil
}

// pointerMove opens on entering a reference and closes on leaving one (or
// the box) unless the preview is pinned. Entering the box cancels a pending close.
func (m *Model) pointerMove(x, y int) tea.Cmd {
	if m.inBoxRect(x, y) {
		if !m.inBox {
			m.inBox = true
			m.ctl.CancelClose()
		}
		m.hover = -1
		return m.syncTarget()
	}
	leftBox := m.inBox
	m.inBox = false

	h := m.hotspotAt(x, y)
	switch {
	case h >= 0 && h != m.hover:
		m.hover = h
		m.open(h, x, y, false)
	case h < 0 && (m.hover >= 0 || leftBox):
		m.hover = -1
		if !m.target.Pinned {
			m.ctl.Close()
		}
	}
	return m.syncTarget()
}

// pointerClick pins the clicked reference; a click outside any reference and the box closes.
func (m *Model) pointerClick(x, y int) tea.Cmd {
	if m.inBoxRect(x, y) {
		return nil
	}
	if h := m.hotspotAt(x, y); h >= 0 {
		m.hover = h
		m.open(h, x, y, true)
	} else {
		m.ctl.Close()
	}
	return m.syncTarget()
}

func (m *Model) open(h, x, y int, pinned bool) {
	ref := m.layout.hotspots[h].Ref
	m.ctl.Open(
		tooltip.Point{X: x, Y: y},
		tooltip.Viewport{Width: m.width, Height: m.height},
		ref.EntityID, ref.EntityType, pinned,
	)
}

func (m *Model) scroll(delta int) tea.Cmd {
	m.vp.SetYOffset(m.vp.YOffset + delta)
	m.hover = -1
	m.ctl.Close()
	return m.syncTarget()
}

func (m *Model) back() tea.Cmd {
	if len(m.history) == 0 {
		return nil
	}
	prev := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	return func() tea.Msg { return pageMsg{page: prev} }
}

// syncTarget mirrors the controller target. A different entity starts a new
// fetch token; the fetch itself waits for the debounce tick.
func (m *Model) syncTarget() tea.Cmd {
	t, ok := m.ctl.Target()
	same := ok == m.hasTarget && (!ok || (t.EntityID == m.target.EntityID && t.EntityType == m.target.EntityType))
	m.target, m.hasTarget = t, ok
	if same {
		return nil
	}

	m.token++
	m.preview, m.previewErr = nil, nil
	m.refresh()
	if !ok {
		return nil
	}
	token := m.token
	return tea.Tick(m.debounce, func(time.Time) tea.Msg { return fetchTickMsg{token: token} })
}

// notify runs on whatever goroutine changed the controller, timers included.
func (m *Model) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Model) waitForChange() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		<-ch
		return targetChangedMsg{}
	}
}

func (m *Model) loadPage(entityID string, push bool) tea.Cmd {
	src := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		p, err := src.Page(ctx, entityID)
		return pageMsg{page: p, push: push, err: err}
	}
}

func (m *Model) loadText(title, text string) tea.Cmd {
	src := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		annotated, err := src.Annotate(ctx, text)
		return pageMsg{page: Page{Title: title, Text: annotated}, push: true, err: err}
	}
}

func (m *Model) fetchPreview(token uint64, t tooltip.Target) tea.Cmd {
	src := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		p, err := src.Preview(ctx, t.EntityType, t.EntityID)
		return previewMsg{token: token, preview: p, err: err}
	}
}

func (m *Model) resize() {
	m.vp.Width = m.width
	m.vp.Height = max(1, m.height-headerHeight-m.boxH-footerHeight)
	m.refresh()
}

// refresh re-lays the page out for the current width and active target.
func (m *Model) refresh() {
	active := ""
	if m.hasTarget {
		active = m.target.EntityID
	}
	m.layout = layoutText(m.page.Text, m.width, m.styles, active)
	m.vp.SetContent(strings.Join(m.layout.lines, "\n"))
}

func (m *Model) hotspotAt(x, y int) int {
	if y < headerHeight || y >= headerHeight+m.vp.Height {
		return -1
	}
	return m.layout.hit(y-headerHeight+m.vp.YOffset, x)
}

func (m *Model) boxRect() (left, top, width int) {
	width = min(m.boxW, m.width)
	left = max(0, min(m.target.Position.X-width/2, m.width-width))
	top = headerHeight + m.vp.Height
	return left, top, width
}

func (m *Model) inBoxRect(x, y int) bool {
	if !m.hasTarget {
		return false
	}
	left, top, width := m.boxRect()
	return x >= left && x < left+width && y >= top && y < top+m.boxH
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return "loading…"
	}

	title := m.styles.Title.Render(m.page.Title)
	if m.page.Type != "" {
		title += " " + m.styles.Dim.Render(m.page.Type)
	}
	header := lipgloss.NewStyle().MaxWidth(m.width).Render(title)

	footer := m.help.View(m.keys)
	if m.status != "" {
		footer = m.styles.Error.Render(m.status)
	}
	footer = lipgloss.NewStyle().MaxWidth(m.width).Render(footer)

	return lipgloss.JoinVertical(lipgloss.Left, header, m.vp.View(), m.renderBox(), footer)
}

func (m *Model) renderBox() string {
	if !m.hasTarget {
		return strings.Repeat("\n", m.boxH-1)
	}
	left, _, width := m.boxRect()
	inner := max(1, width-2)

	var b strings.Builder
	switch {
	case m.previewErr != nil:
		b.WriteString(m.styles.BoxTitle.Render(m.target.EntityID))
		b.WriteString("\n")
		b.WriteString(m.styles.Dim.Render(noPreview))
	case m.preview == nil:
		b.WriteString(m.styles.BoxTitle.Render(m.target.EntityID))
		b.WriteString("\n")
		b.WriteString(m.styles.Dim.Render("loading…"))
	default:
		p := m.preview
		b.WriteString(m.styles.BoxTitle.Render(p.Name))
		b.WriteString(" ")
		b.WriteString(m.styles.Dim.Render(p.Type))
		for _, k := range sortedKeys(p.Attributes) {
			b.WriteString("\n")
			b.WriteString(m.styles.AttrKey.Render(k + ": "))
			b.WriteString(p.Attributes[k])
		}
		body := p.Summary
		if body == "" {
			body = mention.StripReferences(p.Description)
		}
		if body != "" {
			b.WriteString("\n")
			b.WriteString(body)
		}
	}

	st := m.styles.Box
	if m.target.Pinned {
		st = m.styles.PinnedBox
	}
	rows := strings.Split(lipgloss.NewStyle().Width(inner).Render(b.String()), "\n")
	if len(rows) > m.boxH-2 {
		rows = rows[:m.boxH-2]
	}
	box := st.Width(inner).Height(m.boxH - 2).Render(strings.Join(rows, "\n"))
	return lipgloss.NewStyle().MarginLeft(left).Render(box)
}
