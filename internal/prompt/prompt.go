// Package prompt builds the model prompts for plugin generation and parses
// the model's JSON replies into project data.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	ferrors "github.com/darkmc/plugin-forge/internal/errors"
)

// SystemPrompt instructs the model to return a complete plugin project as one
// JSON document.
const SystemPrompt = `You are DARK AI — an elite Minecraft plugin developer. Generate COMPLETE, PRODUCTION-READY code that compiles successfully.

RESPONSE FORMAT (JSON only, no markdown):
{
 "project_name": "DescriptiveName",
 "language": "java|kotlin|skript|datapack",
 "platform": "paper|spigot|velocity|bukkit|skript|datapack|fabric|forge",
 "mc_version": "version",
 "files": [{ "path": "full/path/to/file.java", "content": "complete file content" }],
 "scripts": ["./gradlew build"],
 "explain_steps": [{ "title": "Step", "description": "What this does", "estimated_time": "5s" }],
 "metadata": { "dependencies": ["dep1"], "notes": "Brief implementation notes" }
}

STRICT RULES:
1. READ THE REQUEST CAREFULLY - implement EXACTLY what user asks for
2. Include ALL required files: plugin.yml, main class, build.gradle/build.gradle.kts, config.yml
3. Use MODERN APIs matching the specified MC version
4. Add proper error handling, logging, and null checks
5. Include command tab completion and permission nodes
6. Write CONCISE but COMPLETE code - no placeholder comments
7. For COMPLEX prompts, generate ALL necessary files, not just README

CODE STRUCTURE:
- Paper/Spigot/Bukkit: Main class extends JavaPlugin, proper event handlers, config management
- Skript: Single .sk file with proper syntax and organized sections
- Datapacks: Complete data folder structure with functions, predicates, tags
- Fabric/Forge: Main mod class, fabric.mod.json/mods.toml, proper registration

ACCURACY REQUIREMENTS:
- Match user's exact feature requests - don't add unnecessary extras
- Use correct package names and class structure
- Include only dependencies that are actually needed
- Write compilable code with proper imports and syntax
- Test edge cases: null checks, empty collections, invalid inputs

IMPORTANT: For large/complex prompts, you MUST still generate all necessary code files.
Do NOT just create a README.md. Users expect full plugin implementation.`

// UnclearRequestMessage is returned verbatim to clients whose description
// fails validation.
const UnclearRequestMessage = "⚠️ Please provide a clear description of what you want your plugin to do.\n\nExamples:\n• 'Create an economy plugin with /balance and /pay commands'\n• 'Make a custom enchantment plugin with fire damage'\n• 'Build a minigame with team selection and arena teleportation'"

// complexPromptLength is where a description starts getting the explicit
// all-files addendum.
const complexPromptLength = 200

var wordPattern = regexp.MustCompile(`[a-zA-Z]{3,}`)

// ValidateDescription rejects descriptions too short or wordless to generate
// from. The check runs before any model call.
func ValidateDescription(description string) error {
	trimmed := strings.TrimSpace(description)
	if len(trimmed) < 10 || !wordPattern.MatchString(trimmed) {
		return fmt.Errorf("%w: %s", ferrors.ErrUnclearRequest, UnclearRequestMessage)
	}
	return nil
}

// BuildUserPrompt renders the user turn. Descriptions over the complexity
// threshold get an addendum pushing the model away from README-only output.
func BuildUserPrompt(description, pluginType, mcVersion string) string {
	var complexNote string
	if len(description) > complexPromptLength {
		complexNote = `
⚠️ IMPORTANT: This is a COMPLEX/DETAILED request.
You MUST generate ALL necessary code files including:
- Main plugin class with full implementation
- All required configuration files (plugin.yml, config.yml)
- Build files (build.gradle/build.gradle.kts)
- Event handlers, commands, and utilities as described
- Do NOT just create a README.md file
`
	}

	return fmt.Sprintf(`Create a %s for Minecraft %s:

%s
%s
Requirements:
- Include ALL necessary files (plugin.yml, main class, build file, config)
- Use modern %s APIs
- Implement EXACTLY what was requested - no extra features
- Write production-ready, compilable code
- Add proper error handling and logging
- Keep code concise but complete

Return ONLY valid JSON (no markdown formatting).`,
		pluginType, mcVersion, description, complexNote, mcVersion)
}

// FixSystemPrompt instructs the model to repair a failed build.
const FixSystemPrompt = `You are DARK AI — an elite Minecraft plugin developer. Analyze the build log and source files, find the errors, and fix them.

RESPONSE FORMAT (JSON only, no markdown):
{
 "patches": [{ "path": "full/path/to/file.java", "new_content": "complete fixed file content" }],
 "explanation": "One sentence describing what was wrong and what you changed"
}

RULES:
1. Only patch files that actually need changes
2. new_content must be the COMPLETE file, not a fragment
3. Never invent new files; patch existing paths only
4. If nothing is wrong, return an empty patches array`

// BuildFixPrompt renders the auto-fix user turn from the build console text
// and current sources.
func BuildFixPrompt(buildLog string, files []FileRef) string {
	var sb strings.Builder
	sb.WriteString("The plugin build failed. Build log:\n\n")
	sb.WriteString(buildLog)
	sb.WriteString("\n\nCurrent source files:\n")
	writeFileDump(&sb, files)
	sb.WriteString("\nReturn ONLY valid JSON (no markdown formatting).")
	return sb.String()
}

// UpdateSystemPrompt instructs the model to modify an existing project.
const UpdateSystemPrompt = `You are DARK AI — an elite Minecraft plugin developer. Modify the existing plugin per the user's request.

RESPONSE FORMAT (JSON only, no markdown):
{
 "updates": [{ "path": "full/path/to/file.java", "content": "complete file content", "description": "what changed" }],
 "summary": "One sentence describing the overall change"
}

RULES:
1. Return the COMPLETE content for every touched file
2. Reuse existing paths for modifications; new paths create new files
3. Keep untouched files out of the response
4. Match the existing code style and package structure`

// BuildUpdatePrompt renders the follow-up modification user turn.
func BuildUpdatePrompt(request, platform, mcVersion string, files []FileRef) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Modify this %s plugin for Minecraft %s.\n\nRequest: %s\n\nExisting files:\n", platform, mcVersion, request)
	writeFileDump(&sb, files)
	sb.WriteString("\nReturn ONLY valid JSON (no markdown formatting).")
	return sb.String()
}

// FileRef pairs a path with content for prompt rendering.
type FileRef struct {
	Path    string
	Content string
}

func writeFileDump(sb *strings.Builder, files []FileRef) {
	for _, f := range files {
		fmt.Fprintf(sb, "\n### %s\n```\n%s\n```\n", f.Path, f.Content)
	}
}
