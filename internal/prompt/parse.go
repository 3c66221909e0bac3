package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	ferrors "github.com/darkmc/plugin-forge/internal/errors"
	"github.com/darkmc/plugin-forge/internal/project"
)

var (
	jsonFence  = regexp.MustCompile("```json\n([\\s\\S]*?)\n```")
	plainFence = regexp.MustCompile("```\n([\\s\\S]*?)\n```")
)

// modelReply is project.Data plus the in-band refusal the model may return
// instead of a project.
type modelReply struct {
	project.Data
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ExtractJSON strips a markdown code fence around the model's JSON reply, if
// present.
func ExtractJSON(content string) string {
	if m := jsonFence.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	if m := plainFence.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return content
}

// ParseProject decodes the model's reply into project data. Markdown code
// fences around the JSON are stripped first. A reply of
// {"error":"unclear_request",...} maps to ErrUnclearRequest carrying the
// model's message.
func ParseProject(content string) (project.Data, error) {
	jsonStr := ExtractJSON(content)

	var reply modelReply
	if err := json.Unmarshal([]byte(jsonStr), &reply); err != nil {
		return project.Data{}, fmt.Errorf("parse model response: %w", err)
	}
	if reply.Error == "unclear_request" {
		return project.Data{}, fmt.Errorf("%w: %s", ferrors.ErrUnclearRequest, reply.Message)
	}
	return reply.Data, nil
}

// HasCodeFiles reports whether the project contains at least one real plugin
// source file rather than only documentation.
func HasCodeFiles(data project.Data) bool {
	for _, f := range data.Files {
		if strings.HasSuffix(f.Path, ".java") ||
			strings.HasSuffix(f.Path, ".kt") ||
			strings.HasSuffix(f.Path, ".sk") ||
			strings.Contains(f.Path, "plugin.yml") {
			return true
		}
	}
	return false
}

// IsReadmeOnly reports the degenerate model output of a single README file.
func IsReadmeOnly(data project.Data) bool {
	return !HasCodeFiles(data) &&
		len(data.Files) == 1 &&
		strings.Contains(data.Files[0].Path, "README")
}

// FallbackProject wraps an unparseable model reply in a single-README project
// so the streaming flow still has something to show.
func FallbackProject(pluginType, mcVersion, rawContent string) project.Data {
	excerpt := rawContent
	if len(excerpt) > 1000 {
		excerpt = excerpt[:1000]
	}
	return project.Data{
		ProjectName: "GeneratedPlugin",
		Language:    "java",
		Platform:    pluginType,
		MCVersion:   mcVersion,
		Files: []project.File{{
			Path:    "README.md",
			Content: fmt.Sprintf("# DARK AI - Generated Project\n\nError parsing AI response. Please try regenerating.\n\n%s", excerpt),
		}},
		Scripts: []string{"./gradlew build"},
		ExplainSteps: []project.ExplainStep{{
			Title:         "Generation Complete",
			Description:   "Project created with errors",
			EstimatedTime: "0s",
		}},
		Metadata: project.Metadata{
			Dependencies: []string{},
			Notes:        "Generated by DARK AI - Parse error occurred",
		},
	}
}
