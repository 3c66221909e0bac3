package patch

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkmc/plugin-forge/internal/project"
)

func seededStore() *project.Store {
	return project.NewStore(project.Data{
		ProjectName: "TestPlugin",
		Files: []project.File{
			{Path: "plugin.yml", Content: "name: TestPlugin"},
			{Path: "src/Main.java", Content: "old body"},
		},
	})
}

func newTestApplier(store *project.Store) (*Applier, *project.Console) {
	console := project.NewConsole()
	return NewApplier(store, console, zerolog.Nop(), nil), console
}

func TestApplyFixes_MatchedOnly(t *testing.T) {
	store := seededStore()
	store.SetError()
	a, console := newTestApplier(store)

	res := a.ApplyFixes(FixSet{
		Patches: []Fix{
			{Path: "src/Main.java", NewContent: "fixed body"},
			{Path: "src/Ghost.java", NewContent: "never lands"},
		},
		Explanation: "Added missing import.",
	})

	assert.Equal(t, 1, res.Applied)
	assert.False(t, store.HasError())

	snap := store.Snapshot()
	require.Len(t, snap.Files, 2)
	f, ok := snap.FileByPath("src/Main.java")
	require.True(t, ok)
	assert.Equal(t, "fixed body", f.Content)
	_, ok = snap.FileByPath("src/Ghost.java")
	assert.False(t, ok, "fixes must never create files")

	text := console.Text()
	assert.Contains(t, text, "Applied 2 fixes. Added missing import.")
	assert.Contains(t, text, "Resuming code generation")
}

func TestApplyFixes_EmptySetIsNoOp(t *testing.T) {
	store := seededStore()
	a, console := newTestApplier(store)

	res := a.ApplyFixes(FixSet{})

	assert.Zero(t, res.Applied)
	assert.Equal(t, "old body", store.Snapshot().Files[1].Content)
	entries := console.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "No fixes needed")
}

func TestApplyUpdates_ReplaceAndAppend(t *testing.T) {
	store := seededStore()
	a, console := newTestApplier(store)

	res := a.ApplyUpdates(UpdateSet{
		Updates: []Update{
			{Path: "src/Main.java", Content: "new body", Description: "Reworked listener"},
			{Path: "src/Events.java", Content: "package x;"},
		},
		Summary: "Added event handling",
	})

	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Created)

	snap := store.Snapshot()
	require.Len(t, snap.Files, 3)
	assert.Equal(t, "src/Events.java", snap.Files[2].Path, "new files append at the end")

	text := console.Text()
	assert.Contains(t, text, "✏️ Updated: src/Main.java - Reworked listener")
	assert.Contains(t, text, "📄 Created: src/Events.java - New file")
	assert.Contains(t, text, "✅ Update Complete: Added event handling")
}

func TestApplyUpdates_DefaultSummary(t *testing.T) {
	store := seededStore()
	a, console := newTestApplier(store)

	a.ApplyUpdates(UpdateSet{
		Updates: []Update{{Path: "plugin.yml", Content: "name: Renamed"}},
	})

	assert.Contains(t, console.Text(), "Update Complete: 1 file(s) modified")
}

func TestApplyUpdates_SelectedFileSeesNewContent(t *testing.T) {
	store := seededStore()
	require.True(t, store.Select("src/Main.java"))
	a, _ := newTestApplier(store)

	a.ApplyUpdates(UpdateSet{
		Updates: []Update{{Path: "src/Main.java", Content: "patched"}},
	})

	sel, ok := store.SelectedFile()
	require.True(t, ok)
	assert.Equal(t, "patched", sel.Content)
}

func TestParseFixSet(t *testing.T) {
	fs, err := ParseFixSet([]byte(`{"patches":[{"path":"a","new_content":"b"}],"explanation":"x"}`))
	require.NoError(t, err)
	require.Len(t, fs.Patches, 1)
	assert.Equal(t, "b", fs.Patches[0].NewContent)
	assert.Equal(t, "x", fs.Explanation)
}
