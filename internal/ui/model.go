package ui

import (
	"context"
	"fmt"
	"strings"

	"ragdesk/internal/api"
	"ragdesk/internal/clipboard"
	"ragdesk/internal/config"
	"ragdesk/internal/export"
	"ragdesk/internal/highlight"
	"ragdesk/internal/state"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
)

type dialogKind int

const (
	dialogNone dialogKind = iota
	dialogNewRAG
	dialogUpload
	dialogConfirmDelete
)

type focusArea int

const (
	focusDocuments focusArea = iota
	focusInput
)

const maxTabTitle = 24

type Options struct {
	Config   config.AppConfig
	Backend  Backend
	Journal  Journal
	Exporter *export.FileExporter
	Logger   *zap.Logger
}

type Model struct {
	cfg      config.AppConfig
	backend  Backend
	journal  Journal
	exporter *export.FileExporter
	log      *zap.Logger
	copy     func(context.Context, string) error
	state    *state.Store
	indexed  map[string]bool

	panels []panel
	active int
	focus  focusArea

	dialog      dialogKind
	nameForm    textinput.Model
	modelForm   textinput.Model
	uploadForm  textinput.Model
	confirmID   string
	alert       string
	searchMode  bool
	searchInput textinput.Model
	searchQuery string
	matches     highlight.Result
	matchIndex  int
	help        help.Model
	spinner     spinner.Model
	keys        keyMap
	md          *glamour.TermRenderer
	mdWidth     int
	width       int
	height      int
	pending     int
	spinning    bool
	status      string
	lastErr     error
}

func NewModel(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	name := textinput.New()
	name.Placeholder = "RAG name"
	name.Prompt = "Name:  "
	name.CharLimit = 128

	model := textinput.New()
	model.Placeholder = "gpt-4o-mini"
	model.Prompt = "Model: "
	model.CharLimit = 128

	upload := textinput.New()
	upload.Placeholder = "~/docs/*.pdf, notes.txt"
	upload.Prompt = "Files: "
	upload.CharLimit = 2048

	search := textinput.New()
	search.Placeholder = "Search this chat..."
	search.Prompt = "/ "
	search.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Points

	h := help.New()
	h.ShowAll = false

	return Model{
		cfg:         opts.Config,
		backend:     opts.Backend,
		journal:     opts.Journal,
		exporter:    opts.Exporter,
		log:         log,
		copy:        clipboard.Copy,
		state:       state.New(),
		indexed:     make(map[string]bool),
		nameForm:    name,
		modelForm:   model,
		uploadForm:  upload,
		searchInput: search,
		matchIndex:  -1,
		help:        h,
		spinner:     sp,
		keys:        defaultKeys(),
		status:      "Loading RAGs...",
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadWorkspaces()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case spinner.TickMsg:
		if m.pending <= 0 {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case workspacesLoadedMsg:
		m.done()
		if msg.err != nil {
			m.showAlert(msgLoadFailed, msg.err, zap.String("op", "list rags"))
			break
		}
		m.state.Replace(msg.workspaces)
		m.render()
		m.status = fmt.Sprintf("Loaded %d RAGs", len(msg.workspaces))
		ids := make([]string, 0, len(msg.workspaces))
		for _, ws := range msg.workspaces {
			ids = append(ids, ws.ID)
		}
		if cmd := m.checkStorage(ids...); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case workspaceCreatedMsg:
		m.done()
		if msg.err != nil {
			m.showAlert(msgCreateFailed, msg.err, zap.String("op", "create rag"))
			break
		}
		m.state.Append(msg.workspace)
		m.indexed[msg.workspace.ID] = false
		m.render()
		if m.dialog == dialogNewRAG {
			m.closeDialog()
		}
		m.status = "Created " + msg.workspace.Name

	case documentsUploadedMsg:
		m.done()
		if msg.err != nil {
			m.showAlert(msgUploadFailed, msg.err, zap.String("op", "upload documents"), zap.String("workspace", msg.target))
			break
		}
		if !m.state.ReplaceWorkspace(msg.workspace) {
			m.log.Warn("upload response for unknown workspace", zap.String("workspace", msg.workspace.ID))
		}
		m.render()
		// Another upload dialog may have been opened since this request left.
		if target, ok := m.state.UploadTarget(); ok && target == msg.target {
			if m.dialog == dialogUpload {
				m.closeDialog()
			}
			m.state.ClearUploadTarget()
		}
		m.status = fmt.Sprintf("%s now has %d documents", msg.workspace.Name, len(msg.workspace.Documents))
		if cmd := m.checkStorage(msg.workspace.ID); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case documentDeletedMsg:
		m.done()
		if msg.err != nil {
			m.showAlert(msgDeleteFailed, msg.err, zap.String("op", "delete document"), zap.String("workspace", msg.workspaceID))
			break
		}
		if !m.state.ReplaceWorkspace(msg.workspace) {
			m.log.Warn("delete response for unknown workspace", zap.String("workspace", msg.workspace.ID))
		}
		m.render()
		m.status = "Document deleted"

	case chatReplyMsg:
		m.done()
		p := m.panelByID(msg.workspaceID)
		if msg.err != nil {
			if p != nil {
				if idx := p.bubbleIndex(msg.bubbleID); idx >= 0 {
					p.bubbles[idx].state = bubbleFailed
				}
				m.refreshTranscript(p, false)
			}
			m.showAlert(chatFailureText(msg.err), msg.err, zap.String("op", "chat"), zap.String("workspace", msg.workspaceID))
			break
		}
		if p == nil {
			break
		}
		if idx := p.bubbleIndex(msg.bubbleID); idx >= 0 {
			p.bubbles[idx].state = bubbleDelivered
		}
		p.bubbles = append(p.bubbles, bubble{role: api.RoleAssistant, content: msg.reply})
		m.refreshTranscript(p, true)

	case workspaceDeletedMsg:
		m.done()
		if msg.err != nil {
			m.showAlert(msgRemoveFailed, msg.err, zap.String("op", "delete rag"), zap.String("workspace", msg.workspaceID))
			break
		}
		m.state.Remove(msg.workspaceID)
		delete(m.indexed, msg.workspaceID)
		m.render()
		m.status = "RAG deleted"

	case indexBuiltMsg:
		m.done()
		if msg.err != nil {
			text := msgIndexFailed
			if detail := chatFailureText(msg.err); detail != msgChatFailed {
				text = detail
			}
			m.showAlert(text, msg.err, zap.String("op", "build index"), zap.String("workspace", msg.workspaceID))
			break
		}
		m.indexed[msg.workspaceID] = true
		m.status = msg.message

	case storageCheckedMsg:
		for id, ok := range msg.indexed {
			m.indexed[id] = ok
		}
		if msg.err != nil {
			m.log.Warn("storage status check failed", zap.Error(msg.err))
		}

	case exportMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported: " + msg.path
		}

	case copyMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.status = copyFailureText(msg.err)
		} else {
			m.status = "Copied answer to clipboard"
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.pending > 0 && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) done() {
	if m.pending > 0 {
		m.pending--
	}
}

// render rebuilds every tab and panel from the cache in list order and makes
// the first tab the active one.
func (m *Model) render() {
	list := m.state.Workspaces()
	panels := make([]panel, 0, len(list))
	for _, ws := range list {
		panels = append(panels, newPanel(ws))
	}
	m.panels = panels
	m.active = 0
	m.focus = focusDocuments
	m.clearMatches()
	m.layout()
}

func (m *Model) activePanel() *panel {
	if m.active < 0 || m.active >= len(m.panels) {
		return nil
	}
	return &m.panels[m.active]
}

func (m *Model) panelByID(id string) *panel {
	for i := range m.panels {
		if m.panels[i].id == id {
			return &m.panels[i]
		}
	}
	return nil
}

func (m *Model) selectTab(idx int) {
	if len(m.panels) == 0 {
		return
	}
	if p := m.activePanel(); p != nil {
		p.input.Blur()
	}
	m.active = (idx%len(m.panels) + len(m.panels)) % len(m.panels)
	m.focus = focusDocuments
	m.clearMatches()
	m.refreshTranscript(m.activePanel(), false)
}

// refreshTranscript re-renders p's transcript into its viewport, applying the
// active search when p is the shown panel.
func (m *Model) refreshTranscript(p *panel, toBottom bool) {
	if p == nil {
		return
	}
	p.content = p.buildTranscript(p.transcript.Width, m.md)
	content := p.content
	if active := m.activePanel(); active != nil && active.id == p.id && strings.TrimSpace(m.searchQuery) != "" {
		m.matches = highlight.Apply(p.content, m.searchQuery, func(s string) string {
			return searchMatchStyle.Render(s)
		})
		content = m.matches.Text
		if m.matchIndex >= len(m.matches.Lines) {
			m.matchIndex = -1
		}
	}
	p.transcript.SetContent(content)
	if toBottom {
		p.transcript.GotoBottom()
	}
}

func (m *Model) clearMatches() {
	m.searchQuery = ""
	m.matches = highlight.Result{}
	m.matchIndex = -1
}

func (m *Model) jumpToMatch(delta int) {
	p := m.activePanel()
	if p == nil {
		return
	}
	if len(m.matches.Lines) == 0 {
		m.status = "No search matches in chat"
		return
	}
	m.matchIndex = m.matches.Step(m.matchIndex, delta)
	p.transcript.SetYOffset(m.matches.Lines[m.matchIndex])
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, len(m.matches.Lines))
}

func (m *Model) showAlert(text string, err error, fields ...zap.Field) {
	m.alert = text
	m.lastErr = err
	m.log.Error(text, append(fields, zap.Error(err))...)
}

func (m *Model) openNewRAGDialog() tea.Cmd {
	m.dialog = dialogNewRAG
	m.modelForm.Blur()
	return m.nameForm.Focus()
}

// closeDialog hides the open dialog and clears only that dialog's fields.
func (m *Model) closeDialog() {
	switch m.dialog {
	case dialogNewRAG:
		m.nameForm.Reset()
		m.nameForm.Blur()
		m.modelForm.Reset()
		m.modelForm.Blur()
	case dialogUpload:
		m.uploadForm.Reset()
		m.uploadForm.Blur()
	case dialogConfirmDelete:
		m.confirmID = ""
	}
	m.dialog = dialogNone
}

func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, right := m.paneWidths()
	bodyHeight := m.bodyHeight()

	wrap := right - 4
	if wrap < 20 {
		wrap = 20
	}
	if m.md == nil || m.mdWidth != wrap {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.glamourStyle()),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			m.log.Warn("markdown renderer unavailable", zap.Error(err))
			m.md = nil
		} else {
			m.md = r
		}
		m.mdWidth = wrap
	}

	for i := range m.panels {
		p := &m.panels[i]
		p.transcript.Width = right - 4
		p.transcript.Height = bodyHeight - 4
		if p.transcript.Height < 3 {
			p.transcript.Height = 3
		}
		p.input.Width = right - 8
		m.refreshTranscript(p, true)
	}
}

func (m Model) glamourStyle() string {
	if m.cfg.GlamourStyle != "" {
		return m.cfg.GlamourStyle
	}
	return config.DefaultGlamourStyle
}

func (m Model) paneWidths() (int, int) {
	left := m.width / 4
	if left < 24 {
		left = 24
	}
	if left > m.width-40 {
		left = m.width - 40
	}
	if left < 16 {
		left = 16
	}
	right := m.width - left
	if right < 30 {
		right = 30
	}
	return left, right
}

func (m Model) bodyHeight() int {
	h := m.height - 3
	if h < 8 {
		h = 8
	}
	return h
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	body := m.bodyView()
	switch {
	case m.alert != "":
		body = m.overlay(alertStyle.Render(m.alert + "\n\n" + dimStyle.Render("enter/esc to dismiss")))
	case m.dialog != dialogNone:
		body = m.overlay(m.dialogView())
	}

	helpView := m.help.View(m.keys)
	if m.searchMode {
		helpView = m.searchInput.View() + "  " + helpView
	} else if m.searchQuery != "" {
		helpView = "search: " + m.searchQuery + "  " + helpView
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusLine(),
		m.tabsView(),
		body,
		helpView,
	)
}

func (m Model) tabsView() string {
	if len(m.panels) == 0 {
		return dimStyle.Render("No RAGs yet. Press a to create one.")
	}
	tabs := make([]string, 0, len(m.panels))
	for i, p := range m.panels {
		title := ansi.Truncate(p.name, maxTabTitle, "…")
		if i == m.active {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return ansi.Truncate(row, m.width, "…")
}

func (m Model) bodyView() string {
	p := m.activePanel()
	height := m.bodyHeight() - 1
	if p == nil {
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, dimStyle.Render("Nothing to show"))
	}
	left, right := m.paneWidths()
	docs := panelStyle(m.focus == focusDocuments).
		Width(left - 2).
		Height(height - 2).
		Render(p.documentsView(left-4, m.focus == focusDocuments, m.indexLabel(p.id)))
	chat := panelStyle(m.focus == focusInput).
		Width(right - 2).
		Height(height - 2).
		Render(p.transcript.View() + "\n" + p.input.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, docs, chat)
}

// indexLabel is empty until the backend has reported the workspace's index.
func (m Model) indexLabel(workspaceID string) string {
	ok, known := m.indexed[workspaceID]
	switch {
	case !known:
		return ""
	case ok:
		return "index: built"
	default:
		return "index: not built (press b)"
	}
}

func (m Model) overlay(box string) string {
	return lipgloss.Place(m.width, m.bodyHeight()-1, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) dialogView() string {
	switch m.dialog {
	case dialogNewRAG:
		return dialogStyle.Render("New RAG\n\n" + m.nameForm.View() + "\n" + m.modelForm.View() +
			"\n\n" + dimStyle.Render("tab next field · enter create · esc cancel"))
	case dialogUpload:
		target, _ := m.state.UploadTarget()
		name := target
		if ws, ok := m.state.Workspace(target); ok {
			name = ws.Name
		}
		return dialogStyle.Render("Upload to " + name + "\n\n" + m.uploadForm.View() +
			"\n\n" + dimStyle.Render("paths or globs, comma separated · enter upload · esc cancel"))
	case dialogConfirmDelete:
		name := m.confirmID
		if ws, ok := m.state.Workspace(m.confirmID); ok {
			name = ws.Name
		}
		return dialogStyle.Render("Delete RAG " + name + " and all of its documents?\n\n" +
			dimStyle.Render("y confirm · n/esc cancel"))
	}
	return ""
}

func (m Model) statusLine() string {
	status := m.cfg.BaseURL
	if m.pending > 0 {
		status += "  " + m.spinner.View() + " working..."
	}
	if p := m.activePanel(); p != nil {
		status += fmt.Sprintf("  rag=%s  docs=%d  msgs=%d", shorten(p.id, 18), len(p.documents), len(p.bubbles))
	}
	if m.searchQuery != "" {
		if n := len(m.matches.Lines); n > 0 {
			cur := m.matchIndex + 1
			if cur < 1 {
				cur = 1
			}
			status += fmt.Sprintf("  [match %d/%d]", cur, n)
		} else {
			status += "  [match 0]"
		}
	}
	if s := strings.TrimSpace(m.status); s != "" {
		status += "  " + shorten(s, 80)
	}
	return statusStyle.Width(m.width).Render(ansi.Truncate(status, m.width-2, "…"))
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// The alert is modal: nothing else sees keys until it is dismissed.
	if m.alert != "" {
		switch msg.String() {
		case "enter", "esc", " ":
			m.alert = ""
		}
		return m, nil
	}

	switch m.dialog {
	case dialogNewRAG:
		return m.handleNewRAGKey(msg)
	case dialogUpload:
		return m.handleUploadKey(msg)
	case dialogConfirmDelete:
		return m.handleConfirmKey(msg)
	}

	if m.searchMode {
		return m.handleSearchKey(msg)
	}

	p := m.activePanel()
	if p != nil && m.focus == focusInput {
		switch msg.String() {
		case "esc":
			p.input.Blur()
			m.focus = focusDocuments
			return m, nil
		case "enter":
			return m, m.withSpinner(m.sendMessage(p.id, p.input.Value()))
		}
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NewRAG):
		return m, m.openNewRAGDialog()
	case key.Matches(msg, m.keys.Reload):
		return m, m.withSpinner(m.loadWorkspaces())
	case key.Matches(msg, m.keys.Esc):
		if m.searchQuery != "" {
			m.clearMatches()
			m.refreshTranscript(p, false)
		}
		return m, nil
	}

	if p == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.PrevTab):
		m.selectTab(m.active - 1)
	case key.Matches(msg, m.keys.NextTab):
		m.selectTab(m.active + 1)
	case key.Matches(msg, m.keys.Up):
		p.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		p.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		p.transcript.HalfViewUp()
	case key.Matches(msg, m.keys.PageDown):
		p.transcript.HalfViewDown()
	case key.Matches(msg, m.keys.Compose):
		m.focus = focusInput
		return m, p.input.Focus()
	case key.Matches(msg, m.keys.Upload):
		return m, m.showUploadDialog(p.id)
	case key.Matches(msg, m.keys.DeleteDoc):
		if doc, ok := p.selectedDocument(); ok {
			return m, m.withSpinner(m.deleteDocument(p.id, doc.ID))
		}
		m.status = "No document selected"
	case key.Matches(msg, m.keys.DeleteRAG):
		m.dialog = dialogConfirmDelete
		m.confirmID = p.id
	case key.Matches(msg, m.keys.BuildIndex):
		m.status = "Building index for " + p.name + "..."
		return m, m.withSpinner(m.buildIndex(p.id))
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()
	case key.Matches(msg, m.keys.NextMatch):
		m.jumpToMatch(1)
	case key.Matches(msg, m.keys.PrevMatch):
		m.jumpToMatch(-1)
	case key.Matches(msg, m.keys.Export):
		return m, m.exportTranscript(p.id)
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastAnswer(p.id)
	}
	return m, nil
}

func (m Model) handleNewRAGKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Esc):
		m.closeDialog()
		return m, nil
	case key.Matches(msg, m.keys.SwitchField):
		if m.nameForm.Focused() {
			m.nameForm.Blur()
			return m, m.modelForm.Focus()
		}
		m.modelForm.Blur()
		return m, m.nameForm.Focus()
	case msg.String() == "enter":
		name := strings.TrimSpace(m.nameForm.Value())
		if name == "" {
			m.status = "A RAG needs a name"
			return m, nil
		}
		return m, m.withSpinner(m.createWorkspace(name, strings.TrimSpace(m.modelForm.Value())))
	}

	var cmd tea.Cmd
	if m.modelForm.Focused() {
		m.modelForm, cmd = m.modelForm.Update(msg)
	} else {
		m.nameForm, cmd = m.nameForm.Update(msg)
	}
	return m, cmd
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeDialog()
		return m, nil
	case "enter":
		return m, m.withSpinner(m.uploadDocuments())
	}
	var cmd tea.Cmd
	m.uploadForm, cmd = m.uploadForm.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		id := m.confirmID
		m.closeDialog()
		return m, m.withSpinner(m.deleteWorkspace(id))
	case msg.String() == "n", key.Matches(msg, m.keys.Esc):
		m.closeDialog()
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.activePanel()
	switch msg.String() {
	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.clearMatches()
		m.refreshTranscript(p, false)
		return m, nil
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchQuery = strings.TrimSpace(m.searchInput.Value())
		m.matchIndex = -1
		m.refreshTranscript(p, false)
		if m.searchQuery != "" {
			m.jumpToMatch(1)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// withSpinner starts the busy indicator alongside cmd. A nil cmd stays nil so
// no-op operations issue nothing.
func (m *Model) withSpinner(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	if m.spinning {
		return cmd
	}
	m.spinning = true
	return tea.Batch(cmd, m.spinner.Tick)
}
