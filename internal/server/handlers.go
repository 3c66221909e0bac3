package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/darkmc/plugin-forge/internal/compile"
	"github.com/darkmc/plugin-forge/internal/config"
	ferrors "github.com/darkmc/plugin-forge/internal/errors"
	"github.com/darkmc/plugin-forge/internal/jobs"
	"github.com/darkmc/plugin-forge/internal/llm"
	"github.com/darkmc/plugin-forge/internal/metrics"
	"github.com/darkmc/plugin-forge/internal/patch"
	"github.com/darkmc/plugin-forge/internal/project"
	"github.com/darkmc/plugin-forge/internal/prompt"
	"github.com/darkmc/plugin-forge/internal/retry"
	"github.com/darkmc/plugin-forge/internal/store"
	"github.com/darkmc/plugin-forge/internal/stream"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	cfg     *config.Config
	store   *store.Store
	client  llm.Client
	engine  *jobs.Engine
	catalog llm.Catalog
	metrics *metrics.Metrics
	logger  zerolog.Logger
	retry   retry.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg *config.Config, st *store.Store, client llm.Client, engine *jobs.Engine, catalog llm.Catalog, m *metrics.Metrics, logger zerolog.Logger) *Handlers {
	return &Handlers{
		cfg:     cfg,
		store:   st,
		client:  client,
		engine:  engine,
		catalog: catalog,
		metrics: m,
		logger:  logger.With().Str("component", "handlers").Logger(),
		retry:   retry.DefaultConfig(),
	}
}

type generateRequest struct {
	Description string `json:"description"`
	PluginType  string `json:"pluginType"`
	MCVersion   string `json:"mcVersion"`
	Model       string `json:"model"`
}

// Health handles GET /healthz.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ListModels handles GET /api/models.
func (h *Handlers) ListModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"models":  h.catalog.Models,
		"default": h.catalog.DefaultModelID(),
	})
}

// Generate handles POST /api/generate: the streaming generation path. A
// rejected description comes back as a 200 JSON body so the client can show
// the guidance message; everything else is an event stream.
func (h *Handlers) Generate(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	if err := prompt.ValidateDescription(req.Description); err != nil {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   prompt.UnclearRequestMessage,
		})
	}

	model := h.resolveModel(req.Model)
	userPrompt := prompt.BuildUserPrompt(req.Description, req.PluginType, req.MCVersion)

	resp, err := h.complete(c.Context(), model, prompt.SystemPrompt, userPrompt)
	if err != nil {
		return h.gatewayError(c, err)
	}

	data, perr := prompt.ParseProject(resp.Text)
	if perr != nil {
		if errors.Is(perr, ferrors.ErrUnclearRequest) {
			return c.JSON(fiber.Map{
				"success": false,
				"error":   unclearMessage(perr),
			})
		}
		// The streaming path degrades to a README project rather than
		// failing: the user still gets a sandbox to retry from.
		h.logger.Error().Err(perr).Msg("failed to parse model response")
		data = prompt.FallbackProject(req.PluginType, req.MCVersion, resp.Text)
	}
	if prompt.IsReadmeOnly(data) {
		h.logger.Warn().Msg("model generated only README for prompt")
	}

	if uid := userID(c); uid != "" {
		if _, err := h.store.SaveProject(uid, req.Description, data); err != nil {
			h.logger.Error().Err(err).Msg("failed to save project to history")
		}
	}

	if h.metrics != nil {
		h.metrics.RecordGeneration("streaming", "completed")
	}

	em := &stream.Emitter{
		ChunkSize: h.cfg.StreamChunkSize,
		Delay:     time.Duration(h.cfg.StreamDelayMS) * time.Millisecond,
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Connection", "keep-alive")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		if err := em.Stream(w, data); err != nil {
			h.logger.Debug().Err(err).Msg("client dropped generation stream")
		}
	}))
	return nil
}

// CreateJob handles POST /api/generation-jobs: inserts a pending row.
func (h *Handlers) CreateJob(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if err := prompt.ValidateDescription(req.Description); err != nil {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   prompt.UnclearRequestMessage,
		})
	}

	job := &store.Job{
		ID:          uuid.New().String(),
		UserID:      userID(c),
		Description: req.Description,
		PluginType:  req.PluginType,
		MCVersion:   req.MCVersion,
		Model:       h.resolveModel(req.Model),
	}
	if err := h.store.CreateJob(job); err != nil {
		h.logger.Error().Err(err).Msg("failed to create job")
		return problemResponse(c, fiber.StatusInternalServerError,
			"job_create_failed", "Internal Server Error", "Could not create generation job")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"job_id": job.ID})
}

type jobIDRequest struct {
	JobID string `json:"job_id"`
}

// StartBackground handles POST /api/generate/background: kicks the runner
// for a queued job and returns immediately.
func (h *Handlers) StartBackground(c *fiber.Ctx) error {
	var req jobIDRequest
	if err := c.BodyParser(&req); err != nil || req.JobID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "job_id is required")
	}

	if _, err := h.store.GetJob(req.JobID); err != nil {
		return problemResponse(c, fiber.StatusNotFound,
			"job_not_found", "Not Found", "Job not found: "+req.JobID)
	}

	if !h.engine.Submit(req.JobID) {
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"queue_full", "Service Unavailable", "Generation queue is full, try again shortly")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "job_id": req.JobID})
}

// GenerationStatus handles POST /api/generation-status.
func (h *Handlers) GenerationStatus(c *fiber.Ctx) error {
	var req jobIDRequest
	if err := c.BodyParser(&req); err != nil || req.JobID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "job_id is required")
	}

	job, err := h.store.GetJob(req.JobID)
	if err != nil {
		if errors.Is(err, ferrors.ErrNotFound) {
			return problemResponse(c, fiber.StatusNotFound,
				"job_not_found", "Not Found", "Job not found: "+req.JobID)
		}
		return problemResponse(c, fiber.StatusInternalServerError,
			"job_read_failed", "Internal Server Error", "Could not read job status")
	}

	st := jobs.Status{
		ID:           job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
	}
	if job.Status == store.JobCompleted && job.ProjectData != "" {
		var data project.Data
		if err := json.Unmarshal([]byte(job.ProjectData), &data); err != nil {
			h.logger.Error().Err(err).Str("job_id", job.ID).Msg("corrupt project data on completed job")
		} else {
			st.Project = &data
		}
	}

	return c.JSON(fiber.Map{"success": true, "job": st})
}

type autoFixRequest struct {
	BuildLog string         `json:"buildLog"`
	Files    []project.File `json:"files"`
	Model    string         `json:"model"`
}

// AutoFix handles POST /api/auto-fix: asks the model to repair a failed
// build.
func (h *Handlers) AutoFix(c *fiber.Ctx) error {
	var req autoFixRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	resp, err := h.complete(c.Context(), h.resolveModel(req.Model),
		prompt.FixSystemPrompt, prompt.BuildFixPrompt(req.BuildLog, fileRefs(req.Files)))
	if err != nil {
		return h.gatewayError(c, err)
	}

	fixes, err := patch.ParseFixSet([]byte(prompt.ExtractJSON(resp.Text)))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to parse fix response")
		return problemResponse(c, fiber.StatusBadGateway,
			"fix_parse_failed", "Bad Gateway", "Model returned an unusable fix response")
	}

	return c.JSON(fiber.Map{"success": true, "fixes": fixes})
}

type updateRequest struct {
	Prompt        string         `json:"prompt"`
	ExistingFiles []project.File `json:"existingFiles"`
	Platform      string         `json:"platform"`
	MCVersion     string         `json:"mcVersion"`
	Model         string         `json:"model"`
}

// Update handles POST /api/update: a follow-up modification prompt.
func (h *Handlers) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_prompt", "Bad Request", "prompt is required")
	}

	resp, err := h.complete(c.Context(), h.resolveModel(req.Model),
		prompt.UpdateSystemPrompt,
		prompt.BuildUpdatePrompt(req.Prompt, req.Platform, req.MCVersion, fileRefs(req.ExistingFiles)))
	if err != nil {
		return h.gatewayError(c, err)
	}

	updates, err := patch.ParseUpdateSet([]byte(prompt.ExtractJSON(resp.Text)))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to parse update response")
		return problemResponse(c, fiber.StatusBadGateway,
			"update_parse_failed", "Bad Gateway", "Model returned an unusable update response")
	}

	return c.JSON(fiber.Map{"success": true, "updates": updates})
}

// Compile handles POST /api/compile: the demo JAR build.
func (h *Handlers) Compile(c *fiber.Ctx) error {
	var req compile.Request
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	return c.JSON(compile.Build(req))
}

// ListProjects handles GET /api/projects: the caller's generation history.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return c.JSON(fiber.Map{"projects": []any{}})
	}

	list, err := h.store.ListProjects(uid, c.QueryInt("limit", 50))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list projects")
		return problemResponse(c, fiber.StatusInternalServerError,
			"history_read_failed", "Internal Server Error", "Could not read project history")
	}
	if list == nil {
		list = []*store.SavedProject{}
	}
	return c.JSON(fiber.Map{"projects": list})
}

// Community handles GET /api/community: the newest projects across all users.
func (h *Handlers) Community(c *fiber.Ctx) error {
	list, err := h.store.ListRecent(c.QueryInt("limit", 20))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list recent projects")
		return problemResponse(c, fiber.StatusInternalServerError,
			"community_read_failed", "Internal Server Error", "Could not read recent projects")
	}
	if list == nil {
		list = []*store.SavedProject{}
	}
	return c.JSON(fiber.Map{"projects": list})
}

func (h *Handlers) complete(ctx context.Context, model, system, user string) (*llm.Response, error) {
	var resp *llm.Response
	err := retry.Do(ctx, h.retry, func(ctx context.Context) error {
		var callErr error
		resp, callErr = h.client.Complete(ctx, llm.Request{
			Model:  model,
			System: system,
			Messages: []llm.Message{
				{Role: "user", Content: user},
			},
		})
		return callErr
	})
	return resp, err
}

func (h *Handlers) resolveModel(model string) string {
	if model != "" && h.catalog.Contains(model) {
		return model
	}
	if model != "" {
		h.logger.Warn().Str("model", model).Msg("uncataloged model requested, using default")
	}
	return h.catalog.DefaultModelID()
}

func (h *Handlers) gatewayError(c *fiber.Ctx, err error) error {
	if h.metrics != nil {
		h.metrics.RecordError("server", "gateway")
	}

	var apiErr *ferrors.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case fiber.StatusTooManyRequests, fiber.StatusPaymentRequired:
			// The gateway's message is user-facing; pass it through.
			return c.Status(apiErr.StatusCode).JSON(fiber.Map{
				"error": apiErr.Message,
			})
		}
	}

	h.logger.Error().Err(err).Msg("gateway call failed")
	return problemResponse(c, fiber.StatusBadGateway,
		"gateway_error", "Bad Gateway", "AI gateway request failed")
}

func fileRefs(files []project.File) []prompt.FileRef {
	out := make([]prompt.FileRef, len(files))
	for i, f := range files {
		out[i] = prompt.FileRef{Path: f.Path, Content: f.Content}
	}
	return out
}

func unclearMessage(err error) string {
	msg := err.Error()
	prefix := ferrors.ErrUnclearRequest.Error() + ": "
	return strings.TrimPrefix(msg, prefix)
}
