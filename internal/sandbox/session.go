// Package sandbox is the interactive editing session around one generated
// project: regeneration, auto-fix, follow-up updates, debounced editor
// commits, compilation and source export.
package sandbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/darkmc/plugin-forge/internal/compile"
	"github.com/darkmc/plugin-forge/internal/generate"
	"github.com/darkmc/plugin-forge/internal/patch"
	"github.com/darkmc/plugin-forge/internal/project"
)

// InSandboxThreshold is the background-routing description length for
// generations started from an open sandbox. Shorter than the standalone
// threshold: a sandbox regeneration replaces visible work, so it favors the
// background path earlier.
const InSandboxThreshold = 200

// DefaultEditDebounce is how long an editor keystroke can sit before it
// commits to the store.
const DefaultEditDebounce = 150 * time.Millisecond

// Generator starts generations with a caller-chosen routing threshold.
// Satisfied by *generate.Orchestrator.
type Generator interface {
	GenerateWithThreshold(ctx context.Context, req generate.Request, threshold int) (generate.Result, error)
}

// Fixer produces fix and update sets from the model. Satisfied by the HTTP
// API client; tests substitute fakes.
type Fixer interface {
	AutoFix(ctx context.Context, buildLog string, files []project.File, model string) (patch.FixSet, error)
	UpdatePlugin(ctx context.Context, request string, files []project.File, platform, mcVersion, model string) (patch.UpdateSet, error)
}

// CompiledJar is the last successful demo build.
type CompiledJar struct {
	Name string
	Data string // base64
}

// Session is one user's open sandbox.
type Session struct {
	store   *project.Store
	console *project.Console
	gen     Generator
	fixer   Fixer
	applier *patch.Applier
	logger  zerolog.Logger
	model   string

	mu             sync.Mutex
	editTimer      *time.Timer
	pendingPath    string
	pendingContent string
	debounce       time.Duration
	jar            *CompiledJar
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithModel sets the model used for fix and update calls.
func WithModel(model string) SessionOption {
	return func(s *Session) { s.model = model }
}

// WithEditDebounce overrides the editor commit delay.
func WithEditDebounce(d time.Duration) SessionOption {
	return func(s *Session) { s.debounce = d }
}

// NewSession creates a sandbox session around an existing store and console.
func NewSession(store *project.Store, console *project.Console, gen Generator, fixer Fixer, applier *patch.Applier, logger zerolog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		store:    store,
		console:  console,
		gen:      gen,
		fixer:    fixer,
		applier:  applier,
		logger:   logger.With().Str("component", "sandbox").Logger(),
		debounce: DefaultEditDebounce,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store exposes the session's project store.
func (s *Session) Store() *project.Store { return s.store }

// Console exposes the session's build console.
func (s *Session) Console() *project.Console { return s.console }

// Generate starts a generation from inside the sandbox, routing to the
// background path past the in-sandbox threshold.
func (s *Session) Generate(ctx context.Context, req generate.Request) (generate.Result, error) {
	s.Flush()
	if req.Model != "" {
		s.model = req.Model
	}
	return s.gen.GenerateWithThreshold(ctx, req, InSandboxThreshold)
}

// AutoFix sends the build console and current sources to the model and
// applies whatever patches come back.
func (s *Session) AutoFix(ctx context.Context) (patch.Result, error) {
	s.Flush()
	s.store.ClearError()
	buildLog := s.console.Text()
	s.console.Info("🔧 Running auto-fix analysis...")

	fixes, err := s.fixer.AutoFix(ctx, buildLog, s.store.Files(), s.model)
	if err != nil {
		s.store.SetError()
		s.console.Errorf("❌ Error: %v", err)
		return patch.Result{}, err
	}
	return s.applier.ApplyFixes(fixes), nil
}

// Update applies a follow-up modification prompt to the project.
func (s *Session) Update(ctx context.Context, request string) (patch.Result, error) {
	s.Flush()
	s.store.ClearError()

	shown := request
	if len(shown) > 100 {
		shown = shown[:100]
	}
	s.console.Infof("🔄 Processing request: %s", shown)

	snap := s.store.Snapshot()
	updates, err := s.fixer.UpdatePlugin(ctx, request, snap.Files, snap.Platform, snap.MCVersion, s.model)
	if err != nil {
		s.store.SetError()
		s.console.Errorf("❌ Error: %v", err)
		s.console.Info("⚠️ Update failed. Click the 'Auto Fix' button to resolve issues automatically.")
		return patch.Result{}, err
	}
	return s.applier.ApplyUpdates(updates), nil
}

// Edit records an editor keystroke against the selected file. Commits are
// debounced: each call cancels the previous pending commit, and only the
// last content within the window lands in the store. Flush commits
// immediately.
func (s *Session) Edit(content string) {
	sel, ok := s.store.SelectedFile()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editTimer != nil {
		s.editTimer.Stop()
	}
	s.pendingPath = sel.Path
	s.pendingContent = content
	s.editTimer = time.AfterFunc(s.debounce, s.commitPending)
}

// Flush commits any pending edit now. Safe to call with nothing pending.
func (s *Session) Flush() {
	s.mu.Lock()
	if s.editTimer != nil {
		s.editTimer.Stop()
	}
	s.mu.Unlock()
	s.commitPending()
}

func (s *Session) commitPending() {
	s.mu.Lock()
	path, content := s.pendingPath, s.pendingContent
	s.pendingPath = ""
	s.pendingContent = ""
	s.editTimer = nil
	s.mu.Unlock()

	if path == "" {
		return
	}
	s.store.SetFileContent(path, content)
}

// SelectFile opens a file in the editor.
func (s *Session) SelectFile(path string) bool {
	s.Flush()
	return s.store.Select(path)
}

// Compile runs the demo build and narrates it into the console.
func (s *Session) Compile() compile.Result {
	s.Flush()
	snap := s.store.Snapshot()

	buildCmd := "./gradlew build"
	if len(snap.Scripts) > 0 && snap.Scripts[0] != "" {
		buildCmd = snap.Scripts[0]
	}
	s.console.Info("Starting compilation...")
	s.console.Infof("Running: %s", buildCmd)

	res := compile.Build(compile.Request{
		ProjectName: snap.ProjectName,
		Files:       snap.Files,
		Platform:    snap.Platform,
		Scripts:     snap.Scripts,
	})

	s.console.Info("Creating demo JAR structure...")
	s.console.Successf("✅ Demo JAR created: %s (%dKB)", res.JarName, res.Size/1024)
	s.console.Info("⚠️ NOTE: This is a SIMULATED JAR for demonstration only")
	s.console.Info("📥 To create a REAL working plugin: Download source files and compile locally with Gradle/Maven")

	s.mu.Lock()
	s.jar = &CompiledJar{Name: res.JarName, Data: res.JarData}
	s.mu.Unlock()
	return res
}

// Jar returns the last demo build, if any.
func (s *Session) Jar() (CompiledJar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jar == nil {
		return CompiledJar{}, false
	}
	return *s.jar, true
}

// JarBytes decodes the last demo build for download.
func (s *Session) JarBytes() ([]byte, string, bool) {
	jar, ok := s.Jar()
	if !ok {
		return nil, "", false
	}
	raw, err := base64.StdEncoding.DecodeString(jar.Data)
	if err != nil {
		s.logger.Error().Err(err).Msg("corrupt jar data")
		return nil, "", false
	}
	return raw, jar.Name, true
}

// DownloadSource renders the project as a single text bundle.
func (s *Session) DownloadSource() (string, string) {
	s.Flush()
	snap := s.store.Snapshot()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", snap.ProjectName)
	fmt.Fprintf(&sb, "Platform: %s\n", snap.Platform)
	fmt.Fprintf(&sb, "MC Version: %s\n\n", snap.MCVersion)
	sb.WriteString("## Files\n\n")
	for _, f := range snap.Files {
		fmt.Fprintf(&sb, "### %s\n```\n%s\n```\n\n", f.Path, f.Content)
	}
	return sb.String(), fmt.Sprintf("%s-source.txt", snap.ProjectName)
}

// Close flushes pending edits and releases timers.
func (s *Session) Close() {
	s.Flush()
}
