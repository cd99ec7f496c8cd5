package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ragdesk/internal/api"
	"ragdesk/internal/export"
	"ragdesk/internal/history"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeBackend struct {
	mu sync.Mutex

	list    []api.Workspace
	listErr error

	created   api.Workspace
	createErr error

	uploaded   api.Workspace
	uploadErr  error
	uploadedTo string
	fileNames  []string

	afterDelete api.Workspace
	deleteErr   error

	removeErr error

	reply   string
	chatErr error
	asked   []string

	indexMsg string
	indexErr error

	storage    map[string]bool
	storageErr error

	calls int
}

func (f *fakeBackend) ListWorkspaces(context.Context) ([]api.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.list, f.listErr
}

func (f *fakeBackend) CreateWorkspace(_ context.Context, name, model string) (api.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.created, f.createErr
}

func (f *fakeBackend) DeleteWorkspace(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.removeErr
}

func (f *fakeBackend) UploadDocuments(_ context.Context, ragID string, files []api.File) (api.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.uploadedTo = ragID
	for _, file := range files {
		f.fileNames = append(f.fileNames, file.Name)
	}
	return f.uploaded, f.uploadErr
}

func (f *fakeBackend) DeleteDocument(context.Context, string, string) (api.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.afterDelete, f.deleteErr
}

func (f *fakeBackend) Chat(_ context.Context, _ string, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.asked = append(f.asked, message)
	return f.reply, f.chatErr
}

func (f *fakeBackend) BuildIndex(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.indexMsg, f.indexErr
}

func (f *fakeBackend) StorageStatus(_ context.Context, ragID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storageErr != nil {
		return false, f.storageErr
	}
	return f.storage[ragID], nil
}

type fakeJournal struct {
	mu       sync.Mutex
	entries  []history.Entry
	statuses map[string]history.Status
}

func (j *fakeJournal) Record(_ context.Context, e history.Entry) (history.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	if j.statuses == nil {
		j.statuses = map[string]history.Status{}
	}
	if e.ID != "" {
		j.statuses[e.ID] = e.Status
	}
	return e, nil
}

func (j *fakeJournal) SetStatus(_ context.Context, id string, status history.Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.statuses[id] = status
	return nil
}

func seed() []api.Workspace {
	return []api.Workspace{
		{ID: "ng911", Name: "NG911", Model: "gpt-4o-mini"},
		{
			ID:        "arlington_zoning",
			Name:      "Arlington Zoning RAG",
			Model:     "gpt-4o-mini",
			Documents: []api.Document{{ID: "d0", Name: "zoning.pdf"}},
			Messages: []api.ChatMessage{
				{Role: api.RoleUser, Content: "max height?"},
				{Role: api.RoleAssistant, Content: "75 feet"},
			},
		},
	}
}

func loadedModel(t *testing.T, b *fakeBackend) Model {
	t.Helper()
	m := NewModel(Options{Backend: b})
	next, _ := m.Update(workspacesLoadedMsg{workspaces: seed()})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func panelIDs(m Model) []string {
	ids := make([]string, 0, len(m.panels))
	for _, p := range m.panels {
		ids = append(ids, p.id)
	}
	return ids
}

func TestRenderBuildsOnePanelPerWorkspaceInOrder(t *testing.T) {
	m := loadedModel(t, &fakeBackend{})

	got := panelIDs(m)
	want := []string{"ng911", "arlington_zoning"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("panels = %v, want %v", got, want)
	}
	if m.active != 0 {
		t.Fatalf("active = %d, want 0", m.active)
	}
	if n := len(m.panels[1].bubbles); n != 2 {
		t.Fatalf("arlington bubbles = %d, want 2", n)
	}
	if m.panels[1].bubbles[0].role != api.RoleUser || m.panels[1].bubbles[1].content != "75 feet" {
		t.Fatalf("transcript not built from cache: %+v", m.panels[1].bubbles)
	}
}

func TestRenderWithEmptyCacheHasNoPanels(t *testing.T) {
	m := NewModel(Options{Backend: &fakeBackend{}})
	m = update(t, m, workspacesLoadedMsg{workspaces: []api.Workspace{}})
	if len(m.panels) != 0 {
		t.Fatalf("expected no panels, got %d", len(m.panels))
	}
	if m.activePanel() != nil {
		t.Fatalf("expected no active panel")
	}
}

func TestInitLoadsWorkspaces(t *testing.T) {
	b := &fakeBackend{list: seed()}
	m := NewModel(Options{Backend: b})
	cmd := m.loadWorkspaces()
	if m.pending != 1 {
		t.Fatalf("pending = %d, want 1", m.pending)
	}
	m = update(t, m, cmd())
	if m.pending != 0 {
		t.Fatalf("pending = %d after result, want 0", m.pending)
	}
	if m.state.Len() != 2 || len(m.panels) != 2 {
		t.Fatalf("cache=%d panels=%d, want 2/2", m.state.Len(), len(m.panels))
	}
}

func TestLoadFailureKeepsPriorState(t *testing.T) {
	b := &fakeBackend{listErr: &api.NetworkError{Op: "list rags", Err: errors.New("connection refused")}}
	m := loadedModel(t, b)

	m = update(t, m, m.loadWorkspaces()())

	if m.state.Len() != 2 || len(m.panels) != 2 {
		t.Fatalf("failed load changed state: cache=%d panels=%d", m.state.Len(), len(m.panels))
	}
	if m.alert != msgLoadFailed {
		t.Fatalf("alert = %q, want %q", m.alert, msgLoadFailed)
	}
}

func TestCreateAppendsWorkspaceAndClosesDialog(t *testing.T) {
	b := &fakeBackend{created: api.Workspace{ID: "demo", Name: "Demo", Model: "gpt-4o-mini"}}
	m := loadedModel(t, b)
	m.openNewRAGDialog()
	m.nameForm.SetValue("Demo")

	cmd := m.createWorkspace("Demo", "gpt-4o-mini")
	m = update(t, m, cmd())

	want := "ng911,arlington_zoning,demo"
	if got := strings.Join(panelIDs(m), ","); got != want {
		t.Fatalf("panels = %s, want %s", got, want)
	}
	if m.active != 0 {
		t.Fatalf("active = %d, want 0 after render", m.active)
	}
	if m.dialog != dialogNone || m.nameForm.Value() != "" {
		t.Fatalf("dialog not closed and cleared: dialog=%d name=%q", m.dialog, m.nameForm.Value())
	}
	if ws, ok := m.state.Workspace("demo"); !ok || len(ws.Documents) != 0 || len(ws.Messages) != 0 {
		t.Fatalf("created workspace = %+v, %v", ws, ok)
	}
}

func TestCreateFailureKeepsDialogOpen(t *testing.T) {
	b := &fakeBackend{createErr: &api.ServerError{Op: "create rag", Status: 409, Message: "RAG ID already exists"}}
	m := loadedModel(t, b)
	m.openNewRAGDialog()
	m.nameForm.SetValue("NG911")

	m = update(t, m, m.createWorkspace("NG911", "")())

	if m.dialog != dialogNewRAG {
		t.Fatalf("dialog = %d, want new RAG dialog to stay open", m.dialog)
	}
	if m.nameForm.Value() != "NG911" {
		t.Fatalf("form cleared on failure: %q", m.nameForm.Value())
	}
	if m.state.Len() != 2 {
		t.Fatalf("cache len = %d, want 2", m.state.Len())
	}
	if m.alert != msgCreateFailed {
		t.Fatalf("alert = %q", m.alert)
	}
}

func TestNewRAGDialogRequiresName(t *testing.T) {
	b := &fakeBackend{}
	m := loadedModel(t, b)
	m.openNewRAGDialog()

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd != nil {
		t.Fatalf("expected no command for a blank name")
	}
	if m.dialog != dialogNewRAG || b.calls != 0 {
		t.Fatalf("dialog=%d calls=%d", m.dialog, b.calls)
	}
}

func TestUploadReplacesOnlyTargetWorkspace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f1")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := &fakeBackend{uploaded: api.Workspace{
		ID: "ng911", Name: "NG911", Model: "gpt-4o-mini",
		Documents: []api.Document{{ID: "d1", Name: "f1"}},
	}}
	m := loadedModel(t, b)
	before, _ := m.state.Workspace("arlington_zoning")

	m.showUploadDialog("ng911")
	if m.dialog != dialogUpload {
		t.Fatalf("upload dialog not shown")
	}
	m.uploadForm.SetValue(path)
	cmd := m.uploadDocuments()
	if cmd == nil {
		t.Fatalf("expected an upload command")
	}
	m = update(t, m, cmd())

	if b.uploadedTo != "ng911" || len(b.fileNames) != 1 || b.fileNames[0] != "f1" {
		t.Fatalf("upload sent to %q with %v", b.uploadedTo, b.fileNames)
	}
	ws, _ := m.state.Workspace("ng911")
	if len(ws.Documents) != 1 || ws.Documents[0].ID != "d1" || ws.Documents[0].Name != "f1" {
		t.Fatalf("documents = %+v", ws.Documents)
	}
	after, _ := m.state.Workspace("arlington_zoning")
	if len(after.Documents) != len(before.Documents) || len(after.Messages) != len(before.Messages) {
		t.Fatalf("other workspace changed: %+v", after)
	}
	if _, ok := m.state.UploadTarget(); ok {
		t.Fatalf("upload target not cleared")
	}
	if m.dialog != dialogNone || m.uploadForm.Value() != "" {
		t.Fatalf("upload dialog not closed and reset")
	}
}

func TestUploadWithoutTargetAlertsAndSendsNothing(t *testing.T) {
	b := &fakeBackend{}
	m := loadedModel(t, b)
	m.uploadForm.SetValue("whatever.txt")

	if cmd := m.uploadDocuments(); cmd != nil {
		t.Fatalf("expected no command without an upload target")
	}
	if m.alert != ErrNoUploadTarget.Error() {
		t.Fatalf("alert = %q", m.alert)
	}
	if b.calls != 0 || m.pending != 0 {
		t.Fatalf("calls=%d pending=%d", b.calls, m.pending)
	}
}

func TestUploadFailureKeepsDialogAndCache(t *testing.T) {
	b := &fakeBackend{}
	m := loadedModel(t, b)
	m.showUploadDialog("ng911")
	m.uploadForm.SetValue(filepath.Join(t.TempDir(), "missing-*.txt"))

	m = update(t, m, m.uploadDocuments()())

	if b.calls != 0 {
		t.Fatalf("backend called for unmatched paths")
	}
	if m.dialog != dialogUpload || m.alert != msgUploadFailed {
		t.Fatalf("dialog=%d alert=%q", m.dialog, m.alert)
	}
	if target, ok := m.state.UploadTarget(); !ok || target != "ng911" {
		t.Fatalf("target = %q, %v", target, ok)
	}
}

func TestDeleteDocumentReplacesRecord(t *testing.T) {
	b := &fakeBackend{afterDelete: api.Workspace{
		ID: "arlington_zoning", Name: "Arlington Zoning RAG", Model: "gpt-4o-mini",
		Messages: seed()[1].Messages,
	}}
	m := loadedModel(t, b)

	m = update(t, m, m.deleteDocument("arlington_zoning", "d0")())

	ws, _ := m.state.Workspace("arlington_zoning")
	if len(ws.Documents) != 0 {
		t.Fatalf("documents = %+v, want none", ws.Documents)
	}
	if len(m.panels[1].documents) != 0 {
		t.Fatalf("panel still lists documents")
	}
}

func TestDeleteDocumentFailureLeavesCacheUntouched(t *testing.T) {
	b := &fakeBackend{deleteErr: &api.ServerError{Op: "delete document", Status: 404, Message: "File not found"}}
	m := loadedModel(t, b)

	m = update(t, m, m.deleteDocument("arlington_zoning", "nope")())

	ws, _ := m.state.Workspace("arlington_zoning")
	if len(ws.Documents) != 1 {
		t.Fatalf("documents = %+v, want untouched", ws.Documents)
	}
	if m.alert != msgDeleteFailed {
		t.Fatalf("alert = %q", m.alert)
	}
}

func TestSendMessageAppendsUserBubbleBeforeRequest(t *testing.T) {
	b := &fakeBackend{reply: "hi"}
	m := loadedModel(t, b)

	cmd := m.sendMessage("ng911", "hello")
	if cmd == nil {
		t.Fatalf("expected a chat command")
	}
	p := m.panelByID("ng911")
	if len(p.bubbles) != 1 || p.bubbles[0].content != "hello" || p.bubbles[0].state != bubblePending {
		t.Fatalf("bubbles before request = %+v", p.bubbles)
	}
	if len(b.asked) != 0 {
		t.Fatalf("request issued before the command ran")
	}

	m = update(t, m, cmd())

	p = m.panelByID("ng911")
	if len(p.bubbles) != 2 {
		t.Fatalf("bubbles = %d, want 2", len(p.bubbles))
	}
	if p.bubbles[0].role != api.RoleUser || p.bubbles[0].state != bubbleDelivered {
		t.Fatalf("user bubble = %+v", p.bubbles[0])
	}
	if p.bubbles[1].role != api.RoleAssistant || p.bubbles[1].content != "hi" {
		t.Fatalf("assistant bubble = %+v", p.bubbles[1])
	}
	if ws, _ := m.state.Workspace("ng911"); len(ws.Messages) != 0 {
		t.Fatalf("chat wrote to the cache: %+v", ws.Messages)
	}
}

func TestSendMessageIgnoresBlankInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		b := &fakeBackend{}
		m := loadedModel(t, b)
		if cmd := m.sendMessage("ng911", text); cmd != nil {
			t.Fatalf("sendMessage(%q) returned a command", text)
		}
		if n := len(m.panelByID("ng911").bubbles); n != 0 || m.pending != 0 {
			t.Fatalf("sendMessage(%q) changed the view: bubbles=%d pending=%d", text, n, m.pending)
		}
	}
}

func TestSendMessageTrimsAndClearsInput(t *testing.T) {
	b := &fakeBackend{reply: "ok"}
	m := loadedModel(t, b)
	p := m.panelByID("ng911")
	p.input.SetValue("  what is NG911?  ")

	cmd := m.sendMessage("ng911", p.input.Value())
	cmd()

	if got := m.panelByID("ng911").input.Value(); got != "" {
		t.Fatalf("input = %q, want cleared", got)
	}
	if len(b.asked) != 1 || b.asked[0] != "what is NG911?" {
		t.Fatalf("asked = %q", b.asked)
	}
}

func TestChatFailureMarksBubbleFailed(t *testing.T) {
	j := &fakeJournal{}
	b := &fakeBackend{chatErr: &api.ApplicationError{Op: "chat", Message: "RAG index not found. Please upload and index documents first."}}
	m := NewModel(Options{Backend: b, Journal: j})
	m = update(t, m, workspacesLoadedMsg{workspaces: seed()})

	m = update(t, m, m.sendMessage("ng911", "hello")())

	p := m.panelByID("ng911")
	if len(p.bubbles) != 1 {
		t.Fatalf("bubbles = %+v, want only the user bubble", p.bubbles)
	}
	if p.bubbles[0].state != bubbleFailed {
		t.Fatalf("user bubble state = %d, want failed", p.bubbles[0].state)
	}
	if !strings.Contains(m.alert, "RAG index not found") {
		t.Fatalf("alert = %q", m.alert)
	}
	if got := j.statuses[p.bubbles[0].id]; got != history.StatusFailed {
		t.Fatalf("journal status = %q, want failed", got)
	}
}

func TestChatNetworkFailureUsesGenericAlert(t *testing.T) {
	b := &fakeBackend{chatErr: &api.NetworkError{Op: "chat", Err: errors.New("timeout")}}
	m := loadedModel(t, b)

	m = update(t, m, m.sendMessage("ng911", "hello")())

	if m.alert != msgChatFailed {
		t.Fatalf("alert = %q, want %q", m.alert, msgChatFailed)
	}
}

func TestChatJournalRecordsBothTurns(t *testing.T) {
	j := &fakeJournal{}
	b := &fakeBackend{reply: "hi"}
	m := NewModel(Options{Backend: b, Journal: j})
	m = update(t, m, workspacesLoadedMsg{workspaces: seed()})

	m = update(t, m, m.sendMessage("ng911", "hello")())

	if len(j.entries) != 2 {
		t.Fatalf("journal entries = %d, want 2", len(j.entries))
	}
	if j.entries[0].Role != string(api.RoleUser) || j.entries[1].Role != string(api.RoleAssistant) {
		t.Fatalf("journal roles = %q, %q", j.entries[0].Role, j.entries[1].Role)
	}
	if got := j.statuses[m.panelByID("ng911").bubbles[0].id]; got != history.StatusDelivered {
		t.Fatalf("journal status = %q, want delivered", got)
	}
}

func TestRerenderDropsOptimisticBubbles(t *testing.T) {
	b := &fakeBackend{reply: "hi"}
	m := loadedModel(t, b)
	m = update(t, m, m.sendMessage("ng911", "hello")())
	if n := len(m.panelByID("ng911").bubbles); n != 2 {
		t.Fatalf("bubbles = %d, want 2", n)
	}

	// Any full re-render rebuilds panels from the cache, which never saw the chat.
	m = update(t, m, workspacesLoadedMsg{workspaces: seed()})

	if n := len(m.panelByID("ng911").bubbles); n != 0 {
		t.Fatalf("bubbles after re-render = %d, want 0", n)
	}
}

func TestChatReplyForRemovedPanelIsIgnored(t *testing.T) {
	b := &fakeBackend{reply: "hi"}
	m := loadedModel(t, b)
	cmd := m.sendMessage("ng911", "hello")
	m = update(t, m, workspacesLoadedMsg{workspaces: seed()[1:]})

	m = update(t, m, cmd())

	if m.panelByID("ng911") != nil || m.alert != "" {
		t.Fatalf("reply for removed workspace changed the view")
	}
}

func TestDeleteWorkspaceRemovesPanel(t *testing.T) {
	b := &fakeBackend{}
	m := loadedModel(t, b)
	m.selectTab(1)

	m = update(t, m, m.deleteWorkspace("arlington_zoning")())

	if got := strings.Join(panelIDs(m), ","); got != "ng911" {
		t.Fatalf("panels = %s", got)
	}
	if m.active != 0 {
		t.Fatalf("active = %d", m.active)
	}
}

func TestDeleteWorkspaceFailureAlerts(t *testing.T) {
	b := &fakeBackend{removeErr: &api.ServerError{Op: "delete rag", Status: 409, Message: "Cannot delete default RAG"}}
	m := loadedModel(t, b)

	m = update(t, m, m.deleteWorkspace("ng911")())

	if m.state.Len() != 2 || m.alert != msgRemoveFailed {
		t.Fatalf("len=%d alert=%q", m.state.Len(), m.alert)
	}
}

func TestBuildIndexSetsStatus(t *testing.T) {
	b := &fakeBackend{indexMsg: "Index built successfully with 1 documents"}
	m := loadedModel(t, b)

	m = update(t, m, m.buildIndex("arlington_zoning")())

	if m.status != b.indexMsg {
		t.Fatalf("status = %q", m.status)
	}
}

func TestBuildIndexFailurePrefersServerMessage(t *testing.T) {
	b := &fakeBackend{indexErr: &api.ServerError{Op: "build index", Status: 500, Message: "No files found in data directory"}}
	m := loadedModel(t, b)

	m = update(t, m, m.buildIndex("ng911")())

	if m.alert != "Error: No files found in data directory" {
		t.Fatalf("alert = %q", m.alert)
	}
}

func TestAlertCapturesKeysUntilDismissed(t *testing.T) {
	b := &fakeBackend{}
	m := loadedModel(t, b)
	m.showAlert("boom", errors.New("boom"))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	if m.active != 0 || m.alert != "boom" {
		t.Fatalf("key leaked past alert: active=%d alert=%q", m.active, m.alert)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.alert != "" {
		t.Fatalf("alert not dismissed")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	if m.active != 1 {
		t.Fatalf("active = %d after dismissal, want 1", m.active)
	}
}

func TestTabNavigationWraps(t *testing.T) {
	m := loadedModel(t, &fakeBackend{})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")})
	if m.active != 1 {
		t.Fatalf("active = %d, want wrap to 1", m.active)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	if m.active != 0 {
		t.Fatalf("active = %d, want 0", m.active)
	}
}

func TestConfirmDeleteFlow(t *testing.T) {
	b := &fakeBackend{}
	m := loadedModel(t, b)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("D")})
	if m.dialog != dialogConfirmDelete || m.confirmID != "ng911" {
		t.Fatalf("dialog=%d confirm=%q", m.dialog, m.confirmID)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if m.dialog != dialogNone || b.calls != 0 {
		t.Fatalf("cancel did not close the dialog cleanly")
	}
}

func TestSearchHighlightsTranscript(t *testing.T) {
	m := loadedModel(t, &fakeBackend{})
	m.selectTab(1)
	m.searchQuery = "feet"
	m.refreshTranscript(m.activePanel(), false)

	if len(m.matches.Lines) == 0 {
		t.Fatalf("expected a match for %q in %q", m.searchQuery, m.activePanel().content)
	}
	m.jumpToMatch(1)
	if m.matchIndex != 0 {
		t.Fatalf("matchIndex = %d", m.matchIndex)
	}
	m.selectTab(0)
	if m.searchQuery != "" || m.matchIndex != -1 {
		t.Fatalf("search not cleared on tab change")
	}
}

func TestCopyLastAnswerUsesClipboard(t *testing.T) {
	m := loadedModel(t, &fakeBackend{})
	var copied string
	m.copy = func(_ context.Context, text string) error {
		copied = text
		return nil
	}

	if cmd := m.copyLastAnswer("ng911"); cmd != nil {
		t.Fatalf("expected no command without an answer")
	}
	m = update(t, m, m.copyLastAnswer("arlington_zoning")())
	if copied != "75 feet" || m.status != "Copied answer to clipboard" {
		t.Fatalf("copied=%q status=%q", copied, m.status)
	}
}

func TestExportWritesTranscriptFile(t *testing.T) {
	fe, err := export.NewFileExporter(t.TempDir(), "md")
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(Options{Backend: &fakeBackend{}, Exporter: fe})
	m = update(t, m, workspacesLoadedMsg{workspaces: seed()})

	m = update(t, m, m.exportTranscript("arlington_zoning")())

	if !strings.HasPrefix(m.status, "Exported: ") {
		t.Fatalf("status = %q", m.status)
	}
	data, err := os.ReadFile(strings.TrimPrefix(m.status, "Exported: "))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "75 feet") {
		t.Fatalf("export missing transcript: %s", data)
	}
}

func TestViewRendersTabsAndOverlay(t *testing.T) {
	m := loadedModel(t, &fakeBackend{})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	view := m.View()
	for _, want := range []string{"NG911", "Arlington Zoning RAG", "Documents (0)"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}

	m.showAlert("Failed to load RAGs", errors.New("x"))
	if !strings.Contains(m.View(), "Failed to load RAGs") {
		t.Fatalf("alert not shown")
	}
}

func TestCreateResultKeepsUploadDialogOpen(t *testing.T) {
	b := &fakeBackend{created: api.Workspace{ID: "demo", Name: "Demo"}}
	m := loadedModel(t, b)
	cmd := m.createWorkspace("Demo", "")

	m.showUploadDialog("ng911")
	m.uploadForm.SetValue("notes.txt")
	m = update(t, m, cmd())

	if m.dialog != dialogUpload {
		t.Fatalf("dialog = %d, want upload dialog to stay open", m.dialog)
	}
	if got := m.uploadForm.Value(); got != "notes.txt" {
		t.Fatalf("upload form = %q, want it untouched", got)
	}
	if target, ok := m.state.UploadTarget(); !ok || target != "ng911" {
		t.Fatalf("target = %q, %v", target, ok)
	}
	if m.state.Len() != 3 {
		t.Fatalf("cache len = %d, want 3", m.state.Len())
	}
}

func TestUploadResultKeepsNewRAGDialogOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f1")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := &fakeBackend{uploaded: api.Workspace{ID: "ng911", Name: "NG911", Documents: []api.Document{{ID: "d1", Name: "f1"}}}}
	m := loadedModel(t, b)
	m.showUploadDialog("ng911")
	m.uploadForm.SetValue(path)
	cmd := m.uploadDocuments()
	m.closeDialog()

	m.openNewRAGDialog()
	m.nameForm.SetValue("My RAG")
	m = update(t, m, cmd())

	if m.dialog != dialogNewRAG {
		t.Fatalf("dialog = %d, want new RAG dialog to stay open", m.dialog)
	}
	if got := m.nameForm.Value(); got != "My RAG" {
		t.Fatalf("name form = %q, want it untouched", got)
	}
	if ws, _ := m.state.Workspace("ng911"); len(ws.Documents) != 1 {
		t.Fatalf("upload result not applied: %+v", ws.Documents)
	}
}

func TestUploadResultKeepsNewerUploadTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f1")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := &fakeBackend{uploaded: api.Workspace{ID: "ng911", Name: "NG911", Documents: []api.Document{{ID: "d1", Name: "f1"}}}}
	m := loadedModel(t, b)
	m.showUploadDialog("ng911")
	m.uploadForm.SetValue(path)
	cmd := m.uploadDocuments()
	m.closeDialog()

	m.showUploadDialog("arlington_zoning")
	m.uploadForm.SetValue("later.txt")
	m = update(t, m, cmd())

	if m.dialog != dialogUpload || m.uploadForm.Value() != "later.txt" {
		t.Fatalf("dialog=%d form=%q, want the second upload dialog untouched", m.dialog, m.uploadForm.Value())
	}
	if target, ok := m.state.UploadTarget(); !ok || target != "arlington_zoning" {
		t.Fatalf("target = %q, %v, want arlington_zoning", target, ok)
	}
}

func TestLoadChecksIndexStatus(t *testing.T) {
	b := &fakeBackend{storage: map[string]bool{"arlington_zoning": true}}
	m := NewModel(Options{Backend: b})

	next, cmd := m.Update(workspacesLoadedMsg{workspaces: seed()})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected an index status check after load")
	}
	if got := m.indexLabel("ng911"); got != "" {
		t.Fatalf("label before check = %q, want empty", got)
	}

	m = update(t, m, m.checkStorage("ng911", "arlington_zoning")())

	if got := m.indexLabel("arlington_zoning"); got != "index: built" {
		t.Fatalf("arlington label = %q", got)
	}
	if got := m.indexLabel("ng911"); !strings.HasPrefix(got, "index: not built") {
		t.Fatalf("ng911 label = %q", got)
	}
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if !strings.Contains(m.View(), "index: not built") {
		t.Fatal("document pane does not show the index status")
	}
}

func TestBuildIndexMarksWorkspaceIndexed(t *testing.T) {
	b := &fakeBackend{indexMsg: "Index built successfully with 1 documents"}
	m := loadedModel(t, b)
	m = update(t, m, m.checkStorage("arlington_zoning")())
	if got := m.indexLabel("arlington_zoning"); got == "index: built" {
		t.Fatalf("label = %q before building", got)
	}

	m = update(t, m, m.buildIndex("arlington_zoning")())

	if got := m.indexLabel("arlington_zoning"); got != "index: built" {
		t.Fatalf("label = %q, want built", got)
	}
}

func TestStorageCheckFailureIsSilent(t *testing.T) {
	b := &fakeBackend{storageErr: &api.ServerError{Op: "storage status", Status: 404, Message: "RAG not found"}}
	m := loadedModel(t, b)

	m = update(t, m, m.checkStorage("ng911")())

	if m.alert != "" {
		t.Fatalf("alert = %q, want none", m.alert)
	}
	if got := m.indexLabel("ng911"); got != "" {
		t.Fatalf("label = %q, want unknown", got)
	}
}
