// Package patch applies model-proposed file changes to a live project: fix
// patches produced by build-failure analysis and update patches produced by
// follow-up prompts.
package patch

import "encoding/json"

// Fix replaces the full content of one existing file. Fixes never create
// files; a fix whose path matches nothing is dropped.
type Fix struct {
	Path       string `json:"path"`
	NewContent string `json:"new_content"`
}

// FixSet is the analysis result for one failed build.
type FixSet struct {
	Patches     []Fix  `json:"patches"`
	Explanation string `json:"explanation"`
}

// Update replaces the content of a matching file, or creates the file when no
// entry matches. Description is shown in the build console.
type Update struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// UpdateSet is the result of a follow-up modification prompt.
type UpdateSet struct {
	Updates []Update `json:"updates"`
	Summary string   `json:"summary"`
}

// Result reports what an apply pass changed.
type Result struct {
	Applied int
	Created int
}

// ParseFixSet decodes a fix set from raw JSON.
func ParseFixSet(raw []byte) (FixSet, error) {
	var fs FixSet
	err := json.Unmarshal(raw, &fs)
	return fs, err
}

// ParseUpdateSet decodes an update set from raw JSON.
func ParseUpdateSet(raw []byte) (UpdateSet, error) {
	var us UpdateSet
	err := json.Unmarshal(raw, &us)
	return us, err
}
