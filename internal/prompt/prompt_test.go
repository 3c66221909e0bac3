package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/darkmc/plugin-forge/internal/errors"
	"github.com/darkmc/plugin-forge/internal/project"
)

func TestValidateDescription(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantErr     bool
	}{
		{"clear request", "Create an economy plugin with /balance and /pay commands", false},
		{"too short", "ok", true},
		{"whitespace padding ignored", "   hi    ", true},
		{"long but wordless", "123 456 789 000!!", true},
		{"ten chars with a word", "fly plugin", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDescription(tt.description)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ferrors.ErrUnclearRequest)
				assert.Contains(t, err.Error(), "clear description")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildUserPrompt_Simple(t *testing.T) {
	p := BuildUserPrompt("A fly command", "paper plugin", "1.21")

	assert.Contains(t, p, "Create a paper plugin for Minecraft 1.21:")
	assert.Contains(t, p, "A fly command")
	assert.Contains(t, p, "Use modern 1.21 APIs")
	assert.NotContains(t, p, "COMPLEX/DETAILED")
}

func TestBuildUserPrompt_ComplexAddsAddendum(t *testing.T) {
	long := strings.Repeat("add a warp system with cooldowns ", 10)
	require.Greater(t, len(long), 200)

	p := BuildUserPrompt(long, "paper plugin", "1.21")
	assert.Contains(t, p, "COMPLEX/DETAILED request")
	assert.Contains(t, p, "Do NOT just create a README.md file")
}

func TestParseProject_BareJSON(t *testing.T) {
	data, err := ParseProject(`{"project_name":"Heal","language":"java","platform":"paper","mc_version":"1.21","files":[{"path":"plugin.yml","content":"name: Heal"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Heal", data.ProjectName)
	require.Len(t, data.Files, 1)
}

func TestParseProject_JSONFence(t *testing.T) {
	content := "Here is your plugin:\n```json\n{\"project_name\":\"Fly\",\"files\":[]}\n```\nEnjoy!"
	data, err := ParseProject(content)
	require.NoError(t, err)
	assert.Equal(t, "Fly", data.ProjectName)
}

func TestParseProject_PlainFence(t *testing.T) {
	content := "```\n{\"project_name\":\"Warp\",\"files\":[]}\n```"
	data, err := ParseProject(content)
	require.NoError(t, err)
	assert.Equal(t, "Warp", data.ProjectName)
}

func TestParseProject_UnclearRequestReply(t *testing.T) {
	_, err := ParseProject(`{"error":"unclear_request","message":"Please describe the plugin."}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrUnclearRequest)
	assert.Contains(t, err.Error(), "Please describe the plugin.")
}

func TestParseProject_Garbage(t *testing.T) {
	_, err := ParseProject("Sorry, I cannot help with that.")
	assert.Error(t, err)
}

func TestHasCodeFiles(t *testing.T) {
	assert.True(t, HasCodeFiles(project.Data{Files: []project.File{{Path: "src/Main.java"}}}))
	assert.True(t, HasCodeFiles(project.Data{Files: []project.File{{Path: "plugin.yml"}}}))
	assert.True(t, HasCodeFiles(project.Data{Files: []project.File{{Path: "scripts/heal.sk"}}}))
	assert.False(t, HasCodeFiles(project.Data{Files: []project.File{{Path: "README.md"}, {Path: "LICENSE"}}}))
}

func TestIsReadmeOnly(t *testing.T) {
	assert.True(t, IsReadmeOnly(project.Data{Files: []project.File{{Path: "README.md"}}}))
	assert.False(t, IsReadmeOnly(project.Data{Files: []project.File{
		{Path: "README.md"}, {Path: "docs/USAGE.md"},
	}}))
	assert.False(t, IsReadmeOnly(project.Data{Files: []project.File{{Path: "src/Main.java"}}}))
}

func TestFallbackProject(t *testing.T) {
	raw := strings.Repeat("x", 2000)
	data := FallbackProject("paper plugin", "1.21", raw)

	assert.Equal(t, "GeneratedPlugin", data.ProjectName)
	assert.Equal(t, "paper plugin", data.Platform)
	require.Len(t, data.Files, 1)
	assert.Equal(t, "README.md", data.Files[0].Path)
	assert.LessOrEqual(t, len(data.Files[0].Content), 1200, "raw excerpt is capped")
	assert.True(t, IsReadmeOnly(data))
}

func TestBuildFixPrompt(t *testing.T) {
	p := BuildFixPrompt("[14:30:05] ❌ Error detected: missing import", []FileRef{
		{Path: "src/Main.java", Content: "class Main {}"},
	})
	assert.Contains(t, p, "missing import")
	assert.Contains(t, p, "### src/Main.java")
	assert.Contains(t, p, "class Main {}")
}

func TestBuildUpdatePrompt(t *testing.T) {
	p := BuildUpdatePrompt("add a /fly command", "paper", "1.21", []FileRef{
		{Path: "plugin.yml", Content: "name: X"},
	})
	assert.Contains(t, p, "Modify this paper plugin for Minecraft 1.21.")
	assert.Contains(t, p, "add a /fly command")
	assert.Contains(t, p, "### plugin.yml")
}
