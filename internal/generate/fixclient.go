package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/darkmc/plugin-forge/internal/patch"
	"github.com/darkmc/plugin-forge/internal/project"
)

// AutoFix asks the server to analyze a failed build and returns the proposed
// patches.
func (c *APIClient) AutoFix(ctx context.Context, buildLog string, files []project.File, model string) (patch.FixSet, error) {
	resp, err := c.post(ctx, "/api/auto-fix", map[string]any{
		"buildLog": buildLog,
		"files":    files,
		"model":    model,
	})
	if err != nil {
		return patch.FixSet{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return patch.FixSet{}, fmt.Errorf("auto-fix returned status %d", resp.StatusCode)
	}

	var body struct {
		Success bool         `json:"success"`
		Error   string       `json:"error"`
		Fixes   patch.FixSet `json:"fixes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return patch.FixSet{}, fmt.Errorf("decode auto-fix response: %w", err)
	}
	if !body.Success {
		return patch.FixSet{}, fmt.Errorf("auto-fix rejected: %s", body.Error)
	}
	return body.Fixes, nil
}

// UpdatePlugin asks the server to apply a follow-up modification prompt and
// returns the proposed updates.
func (c *APIClient) UpdatePlugin(ctx context.Context, request string, files []project.File, platform, mcVersion, model string) (patch.UpdateSet, error) {
	resp, err := c.post(ctx, "/api/update", map[string]any{
		"prompt":        request,
		"existingFiles": files,
		"platform":      platform,
		"mcVersion":     mcVersion,
		"model":         model,
	})
	if err != nil {
		return patch.UpdateSet{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return patch.UpdateSet{}, fmt.Errorf("update returned status %d", resp.StatusCode)
	}

	var body struct {
		Success bool            `json:"success"`
		Error   string          `json:"error"`
		Updates patch.UpdateSet `json:"updates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return patch.UpdateSet{}, fmt.Errorf("decode update response: %w", err)
	}
	if !body.Success {
		return patch.UpdateSet{}, fmt.Errorf("update rejected: %s", body.Error)
	}
	return body.Updates, nil
}
