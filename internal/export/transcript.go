package export

import (
	"strings"
	"time"

	"ragdesk/internal/api"
)

// Turn is one transcript entry as displayed, including turns the backend
// never acknowledged.
type Turn struct {
	Role    api.Role `json:"role" yaml:"role"`
	Content string   `json:"content" yaml:"content"`
	Failed  bool     `json:"failed,omitempty" yaml:"failed,omitempty"`
}

type Transcript struct {
	WorkspaceID string         `json:"workspace_id" yaml:"workspace_id"`
	Name        string         `json:"name" yaml:"name"`
	Model       string         `json:"model" yaml:"model"`
	Documents   []api.Document `json:"documents" yaml:"documents"`
	Turns       []Turn         `json:"turns" yaml:"turns"`
	ExportedAt  time.Time      `json:"exported_at" yaml:"exported_at"`
}

func TurnsFromMessages(msgs []api.ChatMessage) []Turn {
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Turn{Role: m.Role, Content: m.Content})
	}
	return out
}

// BuildTranscriptMarkdown renders turns as "## You" / "## Assistant" sections.
func BuildTranscriptMarkdown(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		switch t.Role {
		case api.RoleUser:
			header := "## You"
			if t.Failed {
				header += " (not delivered)"
			}
			b.WriteString(header + "\n\n")
			b.WriteString(content + "\n\n")
		case api.RoleAssistant:
			b.WriteString("## Assistant\n\n")
			b.WriteString(content + "\n\n")
		default:
			b.WriteString("## " + string(t.Role) + "\n\n")
			b.WriteString("```text\n" + content + "\n```\n\n")
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func BuildDocumentMarkdown(tr Transcript) string {
	var b strings.Builder
	b.WriteString("# " + strings.TrimSpace(tr.Name) + "\n\n")
	b.WriteString("- RAG: `" + tr.WorkspaceID + "`\n")
	if tr.Model != "" {
		b.WriteString("- Model: `" + tr.Model + "`\n")
	}
	b.WriteString("- Exported: " + tr.ExportedAt.UTC().Format(time.RFC3339) + "\n")
	if len(tr.Documents) > 0 {
		b.WriteString("- Documents:\n")
		for _, d := range tr.Documents {
			b.WriteString("  - " + d.Name + "\n")
		}
	}
	b.WriteString("\n")
	body := BuildTranscriptMarkdown(tr.Turns)
	if strings.TrimSpace(body) == "" {
		body = "_No messages yet._\n"
	}
	b.WriteString(body)
	return b.String()
}
