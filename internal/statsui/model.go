// Package statsui provides the Bubble Tea viewer for stored analysis runs.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/wheelpoke/internal/model"
	"github.com/verte-zerg/wheelpoke/internal/stats"
	"github.com/verte-zerg/wheelpoke/internal/store"
)

const (
	tabOverview = iota
	tabImages
	tabCurves
)

const (
	plotHeight = 10
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea run viewer.
type Model struct {
	store *store.Store
	runID string

	report stats.StoredReport
	errMsg string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	imageTable  table.Model
	imageLayout tableLayout

	width  int
	height int

	fileIndex int
	window    int

	findMode  bool
	findInput textinput.Model
	findError string
}

type tableLayout struct {
	width    int
	height   int
}

// NewModel constructs a viewer for runID; an empty id opens the latest run.
func NewModel(st *store.Store, runID string) *Model {
	m := &Model{
		store:  st,
		runID:  runID,
		tabs:   []string{"Overview", "Images", "Curves"},
		window: stats.RPMWindow,
	}
	m.initFindInput()
	m.imageTable = buildImageTable(nil, 0, 1)
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.findMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.activeTab == tabImages {
			m.imageTable.Focus()
		} else {
			m.imageTable.Blur()
		}
		if m.findMode {
			return m.updateFind(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "[":
			m.moveFile(-1)
			return m, nil
		case "]":
			m.moveFile(1)
			return m, nil
		case "=":
			m.window = nextCurveWindow(m.window)
			m.renderTabContents()
			return m, nil
		case "-":
			m.window = prevCurveWindow(m.window)
			m.renderTabContents()
			return m, nil
		case "/":
			return m.startFind()
		case "g", "home":
			if m.activeTab == tabImages {
				m.imageTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabImages {
				m.imageTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabImages {
				var cmd tea.Cmd
				m.imageTable, cmd = m.imageTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initFindInput() {
	input := textinput.New()
	input.Prompt = "Find file: "
	input.Placeholder = "Mouse_3 or part of a path"
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	m.findInput = input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.findMode || m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setImageTableSize(m.width, vpHeight)
	promptWidth := lipgloss.Width(m.findInput.Prompt)
	m.findInput.Width = max(10, m.width-promptWidth-2)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	m.activeTab = wrapIndex(m.activeTab+delta, count)
	if m.activeTab == tabImages {
		m.imageTable.Focus()
	} else {
		m.imageTable.Blur()
	}
}

func (m *Model) moveFile(delta int) {
	if len(m.report.Files) == 0 {
		return
	}
	m.fileIndex = wrapIndex(m.fileIndex+delta, len(m.report.Files))
	m.applyImageTable()
	m.renderTabContents()
}

func wrapIndex(idx, count int) int {
	if idx < 0 {
		return count - 1
	}
	if idx >= count {
		return 0
	}
	return idx
}

func (m *Model) currentFile() (model.FileRecord, bool) {
	if m.fileIndex < 0 || m.fileIndex >= len(m.report.Files) {
		return model.FileRecord{}, false
	}
	return m.report.Files[m.fileIndex], true
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	summary := padLines(m.renderRunSummary(), m.width)
	return tabs + "\n" + summary
}

func (m *Model) renderRunSummary() string {
	run := m.report.Run
	file := "none"
	if f, ok := m.currentFile(); ok {
		file = fmt.Sprintf("%d/%d %s", m.fileIndex+1, len(m.report.Files), fileLabel(f.Summary))
	}
	summary := fmt.Sprintf("Run: %s  %s  file=%s  window=%d", shortID(run.RunID), run.CreatedAt.Local().Format("2006-01-02 15:04"), file, m.window)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  File: [/]  Find: /  Scroll: up/down/pgup/pgdn  Window: -/=  Quit: q"
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.findMode {
		line := m.findInput.View()
		if m.findError != "" {
			line = errorStyle.Render(m.findError)
		}
		return headerStyle.Render("enter: jump  esc: cancel") + "\n" + line
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderBody(height int) string {
	if m.activeTab == tabImages {
		f, ok := m.currentFile()
		switch {
		case !ok:
			return fitLines("No files in this run.", m.width, height)
		case f.Summary.Err != "":
			return fitLines(errorStyle.Render(strings.Join(wrapText(f.Summary.Err, m.width), "\n")), m.width, height)
		case len(f.Images) == 0:
			return fitLines("No image stats stored.", m.width, height)
		default:
			view := tableMutedStyle.Render(m.imageTable.View())
			return fitLines(view, m.width, height)
		}
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildStoredReport(context.Background(), m.store, m.runID)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load run.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	m.fileIndex = 0
	m.applyImageTable()
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load run.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))
	f, _ := m.currentFile()
	m.viewports[tabCurves].SetContent(renderCurves(f, m.window, width))
}

func renderOverview(report stats.StoredReport, width int) string {
	if len(report.Files) == 0 {
		return "No files in this run."
	}
	cards := renderSummaryCards(report, width)
	lines := []string{cards, ""}
	for _, f := range report.Files {
		s := f.Summary
		var line string
		if s.Err != "" {
			wrapped := wrapText(fmt.Sprintf("%s  failed: %s", s.Path, s.Err), width)
			for i := range wrapped {
				wrapped[i] = errorStyle.Render(wrapped[i])
			}
			line = strings.Join(wrapped, "\n")
		} else {
			line = truncateLine(fmt.Sprintf("%-10s %-9s pokes=%-4d rotations=%-4d ambiguous=%-3d %s",
				s.Identifier, s.Preset, s.PokeEvents, s.Rotations, s.AmbiguousPokes, s.Path), width)
		}
		lines = append(lines, line)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func renderSummaryCards(report stats.StoredReport, width int) string {
	mice := map[string]struct{}{}
	var pokes, rotations, ambiguous int
	for _, f := range report.Files {
		if f.Summary.Err != "" {
			continue
		}
		mice[f.Summary.Identifier] = struct{}{}
		pokes += f.Summary.PokeEvents
		rotations += f.Summary.Rotations
		ambiguous += f.Summary.AmbiguousPokes
	}
	cards := []string{
		metricCard("Files", fmt.Sprintf("%d", report.Run.Files)),
		metricCard("Failed", fmt.Sprintf("%d", report.Run.Failed)),
		metricCard("Mice", fmt.Sprintf("%d", len(mice))),
		metricCard("Poke events", fmt.Sprintf("%d", pokes)),
		metricCard("Rotations", fmt.Sprintf("%d", rotations)),
		metricCard("Ambiguous", fmt.Sprintf("%d", ambiguous)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderCurves(f model.FileRecord, window, width int) string {
	if f.Summary.Err != "" {
		return fmt.Sprintf("%s failed: %s", f.Summary.Path, f.Summary.Err)
	}
	speeds := stats.RotationSpeeds(f)
	latencies := make([]float64, 0, len(f.Latencies))
	for _, rec := range f.Latencies {
		if !rec.TimedOut {
			latencies = append(latencies, rec.Latency)
		}
	}
	if len(speeds) == 0 && len(latencies) == 0 {
		return "No rotations or latencies stored."
	}
	var buf bytes.Buffer
	if len(speeds) > 0 {
		if err := stats.PlotSeries(&buf, "Rotation Speed (RPM)", []stats.Series{
			{Name: "Interval", Values: speeds},
			{Name: fmt.Sprintf("Avg %d", window), Values: stats.MovingAverage(speeds, window)},
		}, stats.PlotWidthFor(width, 6), plotHeight, true); err != nil {
			return fmt.Sprintf("Failed to render curves: %v", err)
		}
	}
	if len(latencies) > 0 {
		if err := stats.PlotSeries(&buf, "Latency (s)", []stats.Series{
			{Name: "Poke", Values: latencies},
			{Name: fmt.Sprintf("Avg %d", window), Values: stats.MovingAverage(latencies, window)},
		}, stats.PlotWidthFor(width, 6), plotHeight, true); err != nil {
			return fmt.Sprintf("Failed to render curves: %v", err)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func buildImageTableData(images []model.ImageStats) ([]table.Column, []table.Row) {
	columns := []table.Column{
		{Title: "Image", Width: 18},
		{Title: "Type", Width: 7},
		{Title: "Contrast", Width: 8},
		{Title: "Shown", Width: 5},
		{Title: "Hits", Width: 5},
		{Title: "Latency", Width: 8},
		{Title: "SEM", Width: 7},
		{Title: "All", Width: 8},
		{Title: "RPM", Width: 7},
		{Title: "Runs", Width: 5},
	}
	rows := make([]table.Row, 0, len(images))
	for _, im := range images {
		rows = append(rows, table.Row{
			runewidth.Truncate(im.Name, 18, "…"),
			strings.ToLower(im.Type.String()),
			fmt.Sprintf("%d", im.Contrast),
			fmt.Sprintf("%d", im.Appearances),
			fmt.Sprintf("%d", im.Hits),
			fmtCell(im.TrueMean, 3),
			fmtCell(im.TrueSEM, 3),
			fmtCell(im.AllMean, 3),
			fmtCell(im.RPMMean, 1),
			fmt.Sprintf("%d", im.RPMCount),
		})
	}
	return columns, rows
}

func buildImageTable(images []model.ImageStats, width, height int) table.Model {
	columns, rows := buildImageTableData(images)
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(imageTableStyles())
	return t
}

func (m *Model) applyImageTable() {
	f, _ := m.currentFile()
	cols, rows := buildImageTableData(f.Images)
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.imageTable.SetColumns(cols)
	m.imageTable.SetRows(rows)
	m.imageTable.GotoTop()
	m.imageLayout.width = 0
	m.setImageTableSize(width, bodyHeight)
}

func (m *Model) setImageTableSize(width, height int) {
	viewportHeight := max(1, height-1)
	if m.imageLayout.width == width && m.imageLayout.height == viewportHeight {
		return
	}
	m.imageLayout.width = width
	m.imageLayout.height = viewportHeight
	m.imageTable.SetWidth(width)
	m.imageTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustImageTableHeight(height)
	if m.imageLayout.height != viewportHeight {
		m.imageLayout.height = viewportHeight
		m.imageTable.SetHeight(viewportHeight)
	}
}

func (m *Model) adjustImageTableHeight(bodyHeight int) int {
	target := max(1, bodyHeight)
	height := m.imageTable.Height()
	viewHeight := lipgloss.Height(m.imageTable.View())
	if viewHeight == target {
		return height
	}
	return max(height+target-viewHeight, 1)
}

func imageTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFind() (tea.Model, tea.Cmd) {
	m.findMode = true
	m.findError = ""
	m.findInput.SetValue("")
	return m, m.findInput.Focus()
}

func (m *Model) updateFind(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.findMode = false
		m.findError = ""
		m.findInput.Blur()
		return m, nil
	case tea.KeyEnter:
		idx, ok := findFile(m.report.Files, m.findInput.Value(), m.fileIndex)
		if !ok {
			m.findError = fmt.Sprintf("no file matches %q", m.findInput.Value())
			return m, nil
		}
		m.findMode = false
		m.findError = ""
		m.findInput.Blur()
		m.fileIndex = idx
		m.applyImageTable()
		m.renderTabContents()
		return m, nil
	}
	m.findError = ""
	var cmd tea.Cmd
	m.findInput, cmd = m.findInput.Update(msg)
	return m, cmd
}

// findFile returns the first file after from whose identifier or path
// contains query, wrapping around.
func findFile(files []model.FileRecord, query string, from int) (int, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(files) == 0 {
		return 0, false
	}
	for step := 1; step <= len(files); step++ {
		i := (from + step) % len(files)
		s := files[i].Summary
		if strings.Contains(strings.ToLower(s.Identifier), query) || strings.Contains(strings.ToLower(s.Path), query) {
			return i, true
		}
	}
	return 0, false
}

func fileLabel(s model.FileSummary) string {
	if s.Identifier != "" {
		return s.Identifier
	}
	return s.Path
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func fmtCell(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
