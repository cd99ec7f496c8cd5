package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"ragdesk/internal/api"
	"ragdesk/internal/clipboard"
	"ragdesk/internal/export"
	"ragdesk/internal/history"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend is the REST surface the view drives. *api.Client implements it.
type Backend interface {
	ListWorkspaces(ctx context.Context) ([]api.Workspace, error)
	CreateWorkspace(ctx context.Context, name, model string) (api.Workspace, error)
	DeleteWorkspace(ctx context.Context, ragID string) error
	UploadDocuments(ctx context.Context, ragID string, files []api.File) (api.Workspace, error)
	DeleteDocument(ctx context.Context, ragID, docID string) (api.Workspace, error)
	Chat(ctx context.Context, ragID, message string) (string, error)
	BuildIndex(ctx context.Context, ragID string) (string, error)
	StorageStatus(ctx context.Context, ragID string) (bool, error)
}

// Journal records displayed chat bubbles. *history.Journal implements it.
type Journal interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
	SetStatus(ctx context.Context, id string, status history.Status) error
}

var ErrNoUploadTarget = errors.New("no RAG selected for upload")

const (
	msgLoadFailed   = "Failed to load RAGs"
	msgCreateFailed = "Failed to create RAG"
	msgUploadFailed = "Failed to upload documents"
	msgDeleteFailed = "Failed to delete document"
	msgChatFailed   = "Failed to send message"
	msgRemoveFailed = "Failed to delete RAG"
	msgIndexFailed  = "Failed to build index"
)

type workspacesLoadedMsg struct {
	workspaces []api.Workspace
	err        error
}

type workspaceCreatedMsg struct {
	workspace api.Workspace
	err       error
}

type documentsUploadedMsg struct {
	target    string
	workspace api.Workspace
	err       error
}

type documentDeletedMsg struct {
	workspaceID string
	documentID  string
	workspace   api.Workspace
	err         error
}

type chatReplyMsg struct {
	workspaceID string
	bubbleID    string
	reply       string
	err         error
}

type workspaceDeletedMsg struct {
	workspaceID string
	err         error
}

type indexBuiltMsg struct {
	workspaceID string
	message     string
	err         error
}

type storageCheckedMsg struct {
	indexed map[string]bool
	err     error
}

type exportMsg struct {
	path string
	err  error
}

type copyMsg struct {
	err error
}

// loadWorkspaces fetches the full list. The result replaces the cache.
func (m *Model) loadWorkspaces() tea.Cmd {
	backend := m.backend
	m.pending++
	return func() tea.Msg {
		list, err := backend.ListWorkspaces(context.Background())
		return workspacesLoadedMsg{workspaces: list, err: err}
	}
}

func (m *Model) createWorkspace(name, model string) tea.Cmd {
	backend := m.backend
	m.pending++
	return func() tea.Msg {
		ws, err := backend.CreateWorkspace(context.Background(), name, model)
		return workspaceCreatedMsg{workspace: ws, err: err}
	}
}

// showUploadDialog records the upload target and opens the file dialog.
func (m *Model) showUploadDialog(workspaceID string) tea.Cmd {
	m.state.SetUploadTarget(workspaceID)
	m.dialog = dialogUpload
	return m.uploadForm.Focus()
}

// uploadDocuments sends the files named in the upload form to the recorded
// target. Without a target it alerts and issues nothing.
func (m *Model) uploadDocuments() tea.Cmd {
	target, ok := m.state.UploadTarget()
	if !ok {
		m.showAlert(ErrNoUploadTarget.Error(), ErrNoUploadTarget, zap.String("op", "upload documents"))
		return nil
	}
	paths := api.SplitPaths(m.uploadForm.Value())
	if len(paths) == 0 {
		m.showAlert("Select at least one file to upload", api.ErrNoFiles, zap.String("op", "upload documents"))
		return nil
	}

	backend := m.backend
	m.pending++
	return func() tea.Msg {
		files, closeFiles, err := api.OpenFiles(paths)
		defer closeFiles()
		if err != nil {
			return documentsUploadedMsg{target: target, err: err}
		}
		ws, err := backend.UploadDocuments(context.Background(), target, files)
		return documentsUploadedMsg{target: target, workspace: ws, err: err}
	}
}

func (m *Model) deleteDocument(workspaceID, documentID string) tea.Cmd {
	backend := m.backend
	m.pending++
	return func() tea.Msg {
		ws, err := backend.DeleteDocument(context.Background(), workspaceID, documentID)
		return documentDeletedMsg{workspaceID: workspaceID, documentID: documentID, workspace: ws, err: err}
	}
}

// sendMessage appends the user's bubble to the workspace's transcript before
// anything goes over the wire. The bubble is never written to the cache.
func (m *Model) sendMessage(workspaceID, text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	p := m.panelByID(workspaceID)
	if p == nil {
		return nil
	}

	b := bubble{id: uuid.NewString(), role: api.RoleUser, content: text, state: bubblePending}
	p.bubbles = append(p.bubbles, b)
	p.input.Reset()
	m.refreshTranscript(p, true)

	backend, journal, log := m.backend, m.journal, m.log
	m.pending++
	return func() tea.Msg {
		ctx := context.Background()
		record(ctx, journal, log, history.Entry{ID: b.id, WorkspaceID: workspaceID, Role: string(api.RoleUser), Content: text, Status: history.StatusPending})

		reply, err := backend.Chat(ctx, workspaceID, text)
		if err != nil {
			setStatus(ctx, journal, log, b.id, history.StatusFailed)
			return chatReplyMsg{workspaceID: workspaceID, bubbleID: b.id, err: err}
		}
		setStatus(ctx, journal, log, b.id, history.StatusDelivered)
		record(ctx, journal, log, history.Entry{WorkspaceID: workspaceID, Role: string(api.RoleAssistant), Content: reply})
		return chatReplyMsg{workspaceID: workspaceID, bubbleID: b.id, reply: reply}
	}
}

func (m *Model) deleteWorkspace(workspaceID string) tea.Cmd {
	backend := m.backend
	m.pending++
	return func() tea.Msg {
		err := backend.DeleteWorkspace(context.Background(), workspaceID)
		return workspaceDeletedMsg{workspaceID: workspaceID, err: err}
	}
}

func (m *Model) buildIndex(workspaceID string) tea.Cmd {
	backend := m.backend
	m.pending++
	return func() tea.Msg {
		msg, err := backend.BuildIndex(context.Background(), workspaceID)
		return indexBuiltMsg{workspaceID: workspaceID, message: msg, err: err}
	}
}

// checkStorage asks which of the given workspaces have a built index. It runs
// in the background and never raises the alert.
func (m *Model) checkStorage(workspaceIDs ...string) tea.Cmd {
	if len(workspaceIDs) == 0 {
		return nil
	}
	backend := m.backend
	return func() tea.Msg {
		out := storageCheckedMsg{indexed: make(map[string]bool, len(workspaceIDs))}
		for _, id := range workspaceIDs {
			ok, err := backend.StorageStatus(context.Background(), id)
			if err != nil {
				out.err = errors.Join(out.err, err)
				continue
			}
			out.indexed[id] = ok
		}
		return out
	}
}

func (m *Model) exportTranscript(workspaceID string) tea.Cmd {
	p := m.panelByID(workspaceID)
	if p == nil {
		return nil
	}
	if m.exporter == nil {
		m.status = "Export is not configured"
		return nil
	}
	tr := export.Transcript{
		WorkspaceID: p.id,
		Name:        p.name,
		Model:       p.model,
		Documents:   append([]api.Document(nil), p.documents...),
		Turns:       p.turns(),
	}
	exporter := m.exporter
	return func() tea.Msg {
		path, err := exporter.Export(tr)
		return exportMsg{path: path, err: err}
	}
}

func (m *Model) copyLastAnswer(workspaceID string) tea.Cmd {
	p := m.panelByID(workspaceID)
	if p == nil {
		return nil
	}
	answer, ok := p.lastAnswer()
	if !ok {
		m.status = "No answer to copy yet"
		return nil
	}
	copyFn := m.copy
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyMsg{err: copyFn(ctx, answer)}
	}
}

func record(ctx context.Context, j Journal, log *zap.Logger, e history.Entry) {
	if j == nil {
		return
	}
	if _, err := j.Record(ctx, e); err != nil {
		log.Warn("history record failed", zap.String("workspace", e.WorkspaceID), zap.Error(err))
	}
}

func setStatus(ctx context.Context, j Journal, log *zap.Logger, id string, status history.Status) {
	if j == nil {
		return
	}
	if err := j.SetStatus(ctx, id, status); err != nil {
		log.Warn("history status update failed", zap.String("entry", id), zap.Error(err))
	}
}

// chatFailureText prefers the backend's own explanation.
func chatFailureText(err error) string {
	if msg, ok := api.ServerMessage(err); ok {
		return "Error: " + msg
	}
	return msgChatFailed
}

func copyFailureText(err error) string {
	if errors.Is(err, clipboard.ErrToolNotFound) {
		return "Could not copy: clipboard tool not found"
	}
	return "Could not copy: " + err.Error()
}
