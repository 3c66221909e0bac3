// Package project holds the in-memory model of a generated plugin project:
// the ordered file list, its metadata, and the build console log.
package project

// File is a single generated source file. Identity is Path; no two files in a
// project may share one.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ExplainStep is a human-readable generation step returned by the model.
type ExplainStep struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	EstimatedTime string `json:"estimated_time"`
}

// Metadata carries model-reported dependencies and notes.
type Metadata struct {
	Dependencies []string `json:"dependencies"`
	Notes        string   `json:"notes"`
}

// Data is a complete generated project. Files keep arrival order; order is
// stable under edits.
type Data struct {
	ProjectName  string        `json:"project_name"`
	Language     string        `json:"language"`
	Platform     string        `json:"platform"`
	MCVersion    string        `json:"mc_version"`
	Files        []File        `json:"files"`
	Scripts      []string      `json:"scripts"`
	ExplainSteps []ExplainStep `json:"explain_steps"`
	Metadata     Metadata      `json:"metadata"`
}

// PlaceholderName is shown while a generation request is in flight.
const PlaceholderName = "Generating..."

// Placeholder returns the empty project rendered the instant a generation
// request is accepted, before any bytes arrive.
func Placeholder(platform, mcVersion string) Data {
	return Data{
		ProjectName: PlaceholderName,
		Language:    "java",
		Platform:    platform,
		MCVersion:   mcVersion,
		Files:       []File{},
		Scripts:     []string{},
		Metadata:    Metadata{Dependencies: []string{}},
	}
}

// Clone returns a deep copy of the project data.
func (d Data) Clone() Data {
	out := d
	out.Files = make([]File, len(d.Files))
	copy(out.Files, d.Files)
	out.Scripts = append([]string(nil), d.Scripts...)
	out.ExplainSteps = append([]ExplainStep(nil), d.ExplainSteps...)
	out.Metadata.Dependencies = append([]string(nil), d.Metadata.Dependencies...)
	return out
}

// FileByPath returns the file with the given path, if present.
func (d Data) FileByPath(path string) (File, bool) {
	for _, f := range d.Files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}
