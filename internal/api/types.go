package api

import "io"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Workspace is one RAG as the backend reports it. The client never patches a
// Workspace field by field; mutation responses replace it whole.
type Workspace struct {
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	Model     string        `json:"model" yaml:"model"`
	Documents []Document    `json:"documents" yaml:"documents"`
	Messages  []ChatMessage `json:"messages" yaml:"messages"`
}

type Document struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Size int64  `json:"size,omitempty" yaml:"size,omitempty"`
}

type ChatMessage struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// File is one part of a multipart upload.
type File struct {
	Name    string
	Content io.Reader
}

type createRequest struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

type indexResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type storageStatusResponse struct {
	HasStorage bool `json:"has_storage"`
}

type errorBody struct {
	Error string `json:"error"`
}
