package project

import "sync"

// Store guards a single mutable project shared by the stream ingestor, the
// patch applier, and direct editor writes. Every mutation is an atomic
// find-by-path, replace-or-append on one file entry, so interleaved producers
// compose without cloning the whole structure.
//
// The selected file is a weak reference: only the path is retained, and
// SelectedFile re-resolves it against the live file list on every call.
type Store struct {
	mu       sync.Mutex
	data     Data
	selected string
	hasSel   bool
	errFlag  bool
}

// NewStore creates a store seeded with the given project data.
func NewStore(data Data) *Store {
	return &Store{data: data}
}

// Reset replaces the whole project and clears selection and error state.
// Used when a fresh generation request begins.
func (s *Store) Reset(data Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.selected = ""
	s.hasSel = false
	s.errFlag = false
}

// Init overwrites the four header fields announced by the stream's init event.
func (s *Store) Init(name, language, platform, mcVersion string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ProjectName = name
	s.data.Language = language
	s.data.Platform = platform
	s.data.MCVersion = mcVersion
}

// StartFile appends a new empty file at the end of the file list. If the path
// already exists its content is reset instead, so a later event for the same
// path reassigns content rather than duplicating the entry.
func (s *Store) StartFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Files {
		if s.data.Files[i].Path == path {
			s.data.Files[i].Content = ""
			return
		}
	}
	s.data.Files = append(s.data.Files, File{Path: path})
}

// AppendChunk appends a content fragment to the file identified by path and
// returns the file's new content. Chunks are applied in arrival order; the
// store performs pure concatenation. A chunk for an unknown path creates the
// file, so a lost file_start cannot drop content.
func (s *Store) AppendChunk(path, chunk string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Files {
		if s.data.Files[i].Path == path {
			s.data.Files[i].Content += chunk
			return s.data.Files[i].Content
		}
	}
	s.data.Files = append(s.data.Files, File{Path: path, Content: chunk})
	return chunk
}

// SetFileContent replaces the content of the file at path, appending a new
// file if no entry matches.
func (s *Store) SetFileContent(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Files {
		if s.data.Files[i].Path == path {
			s.data.Files[i].Content = content
			return
		}
	}
	s.data.Files = append(s.data.Files, File{Path: path, Content: content})
}

// ReplaceAll swaps in a complete project (the stream's terminal complete
// event) and re-resolves the selection to the first file.
func (s *Store) ReplaceAll(data Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	if len(data.Files) > 0 {
		s.selected = data.Files[0].Path
		s.hasSel = true
	} else {
		s.selected = ""
		s.hasSel = false
	}
}

// Select marks the file at path as the open file. Returns false if no file
// with that path exists.
func (s *Store) Select(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.data.Files {
		if f.Path == path {
			s.selected = path
			s.hasSel = true
			return true
		}
	}
	return false
}

// SelectedFile resolves the current selection against the live file list.
// The returned File is a copy; content always reflects the latest mutation.
func (s *Store) SelectedFile() (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSel {
		return File{}, false
	}
	for _, f := range s.data.Files {
		if f.Path == s.selected {
			return f, true
		}
	}
	return File{}, false
}

// HasSelection reports whether any file is currently selected.
func (s *Store) HasSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSel
}

// Snapshot returns a deep copy of the current project data.
func (s *Store) Snapshot() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// Files returns a copy of the current file list.
func (s *Store) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, len(s.data.Files))
	copy(out, s.data.Files)
	return out
}

// FileCount returns the number of files.
func (s *Store) FileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.Files)
}

// SetError raises the generation error flag shown by the UI.
func (s *Store) SetError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errFlag = true
}

// ClearError lowers the generation error flag.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errFlag = false
}

// HasError reports whether the error flag is raised.
func (s *Store) HasError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errFlag
}
