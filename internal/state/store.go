// Package state holds the view's client-side copy of the backend's workspaces.
//
// The copy is a full snapshot: it is replaced wholesale on load, and each
// mutation response swaps exactly one entry. Store is not safe for concurrent
// use; the view only touches it from its Update loop.
package state

import "ragdesk/internal/api"

type Store struct {
	workspaces   []api.Workspace
	uploadTarget string
	hasTarget    bool
}

func New() *Store {
	return &Store{}
}

func (s *Store) Replace(list []api.Workspace) {
	s.workspaces = append([]api.Workspace(nil), list...)
}

func (s *Store) Append(ws api.Workspace) {
	s.workspaces = append(s.workspaces, ws)
}

// ReplaceWorkspace swaps the entry with ws.ID for ws. It reports false, and
// leaves the store untouched, when no such entry exists.
func (s *Store) ReplaceWorkspace(ws api.Workspace) bool {
	idx := s.Index(ws.ID)
	if idx < 0 {
		return false
	}
	s.workspaces[idx] = ws
	return true
}

func (s *Store) Remove(id string) bool {
	idx := s.Index(id)
	if idx < 0 {
		return false
	}
	s.workspaces = append(s.workspaces[:idx:idx], s.workspaces[idx+1:]...)
	if s.hasTarget && s.uploadTarget == id {
		s.ClearUploadTarget()
	}
	return true
}

// Workspaces returns the cached list in backend order.
func (s *Store) Workspaces() []api.Workspace {
	return append([]api.Workspace(nil), s.workspaces...)
}

func (s *Store) Workspace(id string) (api.Workspace, bool) {
	idx := s.Index(id)
	if idx < 0 {
		return api.Workspace{}, false
	}
	return s.workspaces[idx], true
}

func (s *Store) Index(id string) int {
	for i, ws := range s.workspaces {
		if ws.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) Len() int {
	return len(s.workspaces)
}

func (s *Store) SetUploadTarget(id string) {
	s.uploadTarget = id
	s.hasTarget = true
}

func (s *Store) UploadTarget() (string, bool) {
	return s.uploadTarget, s.hasTarget
}

func (s *Store) ClearUploadTarget() {
	s.uploadTarget = ""
	s.hasTarget = false
}
