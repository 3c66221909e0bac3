package patch

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"

	"github.com/darkmc/plugin-forge/internal/metrics"
	"github.com/darkmc/plugin-forge/internal/project"
)

// Applier folds fix and update sets into a project store, narrating every
// change into the build console. The selected file needs no special handling:
// the store re-resolves it by path, so a patched file shows its new content
// immediately.
type Applier struct {
	store   *project.Store
	console *project.Console
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewApplier creates an applier bound to a store and console. metrics may be
// nil.
func NewApplier(store *project.Store, console *project.Console, logger zerolog.Logger, m *metrics.Metrics) *Applier {
	return &Applier{
		store:   store,
		console: console,
		logger:  logger.With().Str("component", "patch_applier").Logger(),
		metrics: m,
	}
}

// ApplyFixes applies a fix set. Only patches whose path matches an existing
// file are applied; the rest are dropped. An empty set leaves the project
// untouched and logs a single no-op line. Applying any fixes lowers the
// store's error flag.
func (a *Applier) ApplyFixes(fs FixSet) Result {
	if len(fs.Patches) == 0 {
		a.console.Info("✅ No fixes needed. Code looks good!")
		return Result{}
	}

	before := a.store.Snapshot()
	var res Result
	for _, p := range fs.Patches {
		old, ok := before.FileByPath(p.Path)
		if !ok {
			a.logger.Warn().Str("path", p.Path).Msg("fix targets unknown file, dropping")
			continue
		}
		a.store.SetFileContent(p.Path, p.NewContent)
		a.logDiff(p.Path, old.Content, p.NewContent)
		res.Applied++
	}

	a.store.ClearError()
	a.console.Successf("✅ Applied %d fixes. %s", len(fs.Patches), fs.Explanation)
	a.console.Info("🎉 Resuming code generation...")

	if a.metrics != nil {
		a.metrics.RecordPatches("fix", res.Applied)
	}
	return res
}

// ApplyUpdates applies an update set: matching files are replaced in place,
// the rest are appended as new files in update order.
func (a *Applier) ApplyUpdates(us UpdateSet) Result {
	before := a.store.Snapshot()
	var res Result
	for _, u := range us.Updates {
		old, ok := before.FileByPath(u.Path)
		a.store.SetFileContent(u.Path, u.Content)
		if ok {
			a.console.Successf("✏️ Updated: %s - %s", u.Path, orDefault(u.Description, "Modified"))
			a.logDiff(u.Path, old.Content, u.Content)
			res.Applied++
		} else {
			a.console.Successf("📄 Created: %s - %s", u.Path, orDefault(u.Description, "New file"))
			res.Created++
		}
	}

	summary := us.Summary
	if summary == "" {
		summary = fmt.Sprintf("%d file(s) modified", res.Applied+res.Created)
	}
	a.console.Successf("✅ Update Complete: %s", summary)

	if a.metrics != nil {
		a.metrics.RecordPatches("update", res.Applied+res.Created)
	}
	return res
}

func (a *Applier) logDiff(path, oldContent, newContent string) {
	diff := difflib.UnifiedDiff{
		A:       difflib.SplitLines(oldContent),
		B:       difflib.SplitLines(newContent),
		Context: 0,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return
	}
	var added, removed int
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			added++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			removed++
		}
	}
	a.logger.Debug().
		Str("path", path).
		Int("lines_added", added).
		Int("lines_removed", removed).
		Msg("patched file")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
