// ABOUTME: Interactive bubbletea browser for the listings board.
// ABOUTME: Renders engine views, forwards search and paging keys, and runs deletes in the background.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/adboard/internal/board"
	"github.com/2389-research/adboard/internal/models"
)

// viewMsg carries a fresh engine view.
type viewMsg board.View

// watchClosedMsg is sent when the engine stops publishing views.
type watchClosedMsg struct{}

// actionDoneMsg reports the outcome of a background mutation.
type actionDoneMsg struct {
	text string
	err  error
}

var (
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pendingStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214"))
)

// BoardModel is the bubbletea model for browsing listings.
type BoardModel struct {
	ctx     context.Context
	engine  *board.Engine
	views   <-chan board.View
	locator board.Locator
	radius  float64

	view      board.View
	search    textinput.Model
	searching bool
	cursor    int
	spinner   spinner.Model
	status    string
	quitting  bool
}

// BoardOption configures a BoardModel.
type BoardOption func(*BoardModel)

// WithLocator enables the 'g' key, which filters to radiusKm around loc.
func WithLocator(loc board.Locator, radiusKm float64) BoardOption {
	return func(m *BoardModel) {
		m.locator = loc
		m.radius = radiusKm
	}
}

// NewBoardModel subscribes to engine views until ctx ends. The engine must
// already be started.
func NewBoardModel(ctx context.Context, engine *board.Engine, opts ...BoardOption) BoardModel {
	search := textinput.New()
	search.Placeholder = "search listings"
	search.Prompt = "/ "
	search.Width = 40

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := BoardModel{
		ctx:     ctx,
		engine:  engine,
		views:   engine.Watch(ctx),
		search:  search,
		spinner: s,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.search.SetValue(engine.Snapshot().Query.Search)
	return m
}

// Init implements tea.Model.
func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(m.waitForView(), m.spinner.Tick)
}

func (m BoardModel) waitForView() tea.Cmd {
	views := m.views
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return watchClosedMsg{}
		}
		return viewMsg(v)
	}
}

// Update implements tea.Model.
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.view = board.View(msg)
		m.clampCursor()
		return m, m.waitForView()

	case watchClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case actionDoneMsg:
		if msg.err != nil {
			m.status = ""
		} else {
			m.status = msg.text
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m BoardModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.engine.FlushSearch()
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEscape:
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.engine.SetSearch(m.search.Value())
	}
	return m, cmd
}

func (m BoardModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		m.moveCursor(-1)
		return m, nil
	case tea.KeyDown:
		m.moveCursor(1)
		return m, nil
	case tea.KeyRight:
		m.engine.NextPage()
		return m, nil
	case tea.KeyLeft:
		m.engine.PrevPage()
		return m, nil
	case tea.KeyEscape:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyRunes:
		if len(msg.Runes) == 0 {
			return m, nil
		}
	default:
		return m, nil
	}

	switch msg.Runes[0] {
	case '/':
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case 'k':
		m.moveCursor(-1)
	case 'j':
		m.moveCursor(1)
	case 'n':
		m.engine.NextPage()
	case 'p':
		m.engine.PrevPage()
	case 'r':
		m.engine.Refresh()
	case 'x':
		m.engine.DismissError()
		m.status = ""
	case 'g':
		return m, m.toggleGeo()
	case 'd':
		return m, m.deleteSelected()
	case 'q':
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m BoardModel) toggleGeo() tea.Cmd {
	if m.view.Query.Geo != nil {
		m.engine.ClearGeo()
		return nil
	}
	if m.locator == nil {
		return nil
	}
	radius := m.radius
	m.engine.Locate(m.ctx, m.locator, &radius)
	return nil
}

func (m BoardModel) deleteSelected() tea.Cmd {
	ad, ok := m.Selected()
	if !ok {
		return nil
	}
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		if err := engine.Delete(ctx, ad.ID); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{text: fmt.Sprintf("Deleted %q", ad.Title)}
	}
}

func (m *BoardModel) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *BoardModel) clampCursor() {
	if m.cursor >= len(m.view.Items) {
		m.cursor = len(m.view.Items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Selected returns the listing under the cursor.
func (m BoardModel) Selected() (ad models.Ad, ok bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Items) {
		return models.Ad{}, false
	}
	return m.view.Items[m.cursor], true
}

// View implements tea.Model.
func (m BoardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   ADBOARD"))
	b.WriteString(titleStyle.Render(" - Listings"))
	b.WriteString("\n\n")

	b.WriteString(m.search.View())
	if m.view.SearchPending {
		b.WriteString(pendingStyle.Render("  (typing)"))
	}
	b.WriteString("\n")
	if filters := describeFilters(m.view.Query); filters != "" {
		b.WriteString(metaStyle.Render(filters))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.view.Err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.view.Err.Message)))
		b.WriteString(promptStyle.Render("  [x] dismiss"))
		b.WriteString("\n\n")
	}

	switch {
	case len(m.view.Items) == 0 && m.view.Loading:
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading...\n")
	case len(m.view.Items) == 0:
		b.WriteString(metaStyle.Render("No listings found"))
		b.WriteString("\n")
	default:
		for i, ad := range m.view.Items {
			line := fmt.Sprintf("  %s", ad.Title)
			if i == m.cursor {
				line = selectedStyle.Render("▸ " + ad.Title)
			}
			b.WriteString(line)
			b.WriteString("\n")
			if meta := describeAd(ad); meta != "" {
				b.WriteString(metaStyle.Render("    " + meta))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	footer := fmt.Sprintf("Page %d of %d · %d listings", m.view.Page, max(m.view.TotalPages, 1), m.view.TotalCount)
	if m.view.Loading && len(m.view.Items) > 0 {
		footer += " · " + m.spinner.View() + " refreshing"
	}
	b.WriteString(stepStyle.Render(footer))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(successStyle.Render(m.status))
		b.WriteString("\n")
	}
	help := "[/] search  [n/p] page  [r]efresh  [d]elete  [q]uit"
	if m.locator != nil {
		help = "[/] search  [n/p] page  [g]eo  [r]efresh  [d]elete  [q]uit"
	}
	b.WriteString(promptStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}

func describeFilters(q board.Query) string {
	var parts []string
	if q.Category != "" {
		parts = append(parts, "category: "+q.Category)
	}
	if q.Location != "" {
		parts = append(parts, "location: "+q.Location)
	}
	if q.Geo != nil && q.Geo.RadiusKm != nil {
		parts = append(parts, fmt.Sprintf("within %.0f km of %.4f,%.4f", *q.Geo.RadiusKm, q.Geo.Lat, q.Geo.Lng))
	}
	return strings.Join(parts, "  ")
}

func describeAd(ad models.Ad) string {
	var parts []string
	if ad.Category != "" {
		parts = append(parts, ad.Category)
	}
	if ad.Location != "" {
		parts = append(parts, ad.Location)
	}
	if ad.UserName != "" {
		parts = append(parts, "by "+ad.UserName)
	}
	if !ad.CreatedAt.IsZero() {
		parts = append(parts, ad.CreatedAt.Format("2006-01-02"))
	}
	return strings.Join(parts, " · ")
}
