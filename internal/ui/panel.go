package ui

import (
	"fmt"
	"strings"

	"ragdesk/internal/api"
	"ragdesk/internal/export"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

type bubbleState int

const (
	bubbleDelivered bubbleState = iota
	bubblePending
	bubbleFailed
)

// bubble is one displayed transcript entry. Bubbles built from the cache are
// delivered; a user bubble appended by sendMessage lives only here.
type bubble struct {
	id      string
	role    api.Role
	content string
	state   bubbleState

	rendered      string
	renderedWidth int
}

// panel is the view of one workspace: its documents, transcript and input.
type panel struct {
	id        string
	name      string
	model     string
	documents []api.Document
	bubbles   []bubble
	docCursor int

	transcript viewport.Model
	input      textinput.Model
	content    string
}

func newPanel(ws api.Workspace) panel {
	ti := textinput.New()
	ti.Placeholder = "Ask " + ws.Name + "..."
	ti.Prompt = "> "
	ti.CharLimit = 4000

	p := panel{
		id:         ws.ID,
		name:       ws.Name,
		model:      ws.Model,
		documents:  append([]api.Document(nil), ws.Documents...),
		transcript: viewport.New(40, 10),
		input:      ti,
	}
	for _, msg := range ws.Messages {
		p.bubbles = append(p.bubbles, bubble{role: msg.Role, content: msg.Content})
	}
	return p
}

func (p *panel) selectedDocument() (api.Document, bool) {
	if p.docCursor < 0 || p.docCursor >= len(p.documents) {
		return api.Document{}, false
	}
	return p.documents[p.docCursor], true
}

func (p *panel) moveCursor(delta int) {
	if len(p.documents) == 0 {
		p.docCursor = 0
		return
	}
	p.docCursor += delta
	if p.docCursor < 0 {
		p.docCursor = 0
	}
	if p.docCursor >= len(p.documents) {
		p.docCursor = len(p.documents) - 1
	}
}

func (p *panel) bubbleIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range p.bubbles {
		if p.bubbles[i].id == id {
			return i
		}
	}
	return -1
}

func (p *panel) lastAnswer() (string, bool) {
	for i := len(p.bubbles) - 1; i >= 0; i-- {
		if p.bubbles[i].role == api.RoleAssistant && strings.TrimSpace(p.bubbles[i].content) != "" {
			return p.bubbles[i].content, true
		}
	}
	return "", false
}

func (p *panel) turns() []export.Turn {
	out := make([]export.Turn, 0, len(p.bubbles))
	for _, b := range p.bubbles {
		out = append(out, export.Turn{Role: b.role, Content: b.content, Failed: b.state == bubbleFailed})
	}
	return out
}

// buildTranscript renders every bubble at width. Assistant replies go through
// glamour when a renderer is available.
func (p *panel) buildTranscript(width int, md *glamour.TermRenderer) string {
	if len(p.bubbles) == 0 {
		return dimStyle.Render("No messages yet. Press i to ask " + p.name + " something.")
	}
	if width < 20 {
		width = 20
	}
	var b strings.Builder
	for i := range p.bubbles {
		bb := &p.bubbles[i]
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(bubbleLabel(bb) + "\n")
		b.WriteString(bubbleBody(bb, width, md))
		b.WriteString("\n")
	}
	return b.String()
}

func bubbleLabel(b *bubble) string {
	if b.role == api.RoleAssistant {
		return assistantLabelStyle.Render("Assistant")
	}
	label := userLabelStyle.Render("You")
	switch b.state {
	case bubblePending:
		label += dimStyle.Render(" · sending...")
	case bubbleFailed:
		label += failedStyle.Render(" · not delivered")
	}
	return label
}

func bubbleBody(b *bubble, width int, md *glamour.TermRenderer) string {
	if b.role == api.RoleAssistant && md != nil {
		if b.renderedWidth == width && b.rendered != "" {
			return b.rendered
		}
		if out, err := md.Render(b.content); err == nil {
			b.rendered = strings.Trim(out, "\n")
			b.renderedWidth = width
			return b.rendered
		}
	}
	return lipgloss.NewStyle().Width(width).Render(strings.TrimSpace(b.content))
}

func (p *panel) documentsView(width int, focused bool, index string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Documents (%d)\n", len(p.documents)))
	b.WriteString(dimStyle.Render("model: "+p.model) + "\n")
	if index != "" {
		b.WriteString(dimStyle.Render(index) + "\n")
	}
	b.WriteString("\n")
	if len(p.documents) == 0 {
		b.WriteString(dimStyle.Render("No documents. Press u to upload."))
		return b.String()
	}
	for i, d := range p.documents {
		line := shorten(d.Name, width-4)
		if d.Size > 0 {
			line = shorten(d.Name, width-14) + dimStyle.Render(" "+formatSize(d.Size))
		}
		if i == p.docCursor && focused {
			b.WriteString(cursorStyle.Render("› ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return s
	}
	return ansi.Truncate(s, n, "...")
}
