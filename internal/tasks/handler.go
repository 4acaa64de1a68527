package tasks

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jar-translator/internal/archive"
	"jar-translator/internal/shared/server/middleware"
	"jar-translator/internal/shared/server/respond"
)

// DefaultMaxUploadBytes caps a single archive upload.
const DefaultMaxUploadBytes int64 = 100 << 20

// Handler wires HTTP handlers to the task service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches task routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/translate/bytecode", h.submit)
	rg.POST("/translate/bytecode/apply", h.confirm)
	rg.POST("/translate/bytecode/preview", h.preview)
	rg.GET("/translate/bytecode/status/:id", h.status)
	rg.GET("/translate/bytecode/download/:id", h.download)
	rg.GET("/translate/bytecode/list", h.list)
}

func (h *Handler) submit(c *gin.Context) {
	file, name, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	task, err := h.Svc.Submit(ctx, SubmitInput{
		Filename:   name,
		Body:       file,
		TargetLang: c.DefaultPostForm("target_lang", DefaultTargetLang),
		Model:      c.DefaultPostForm("ai_model", DefaultModel),
		APIKey:     c.PostForm("api_key"),
		ClientID:   middleware.ClientIDFromContext(c),
	})
	if err != nil {
		writeError(c, err, "failed to submit task")
		return
	}
	c.Set("taskId", task.ID)
	c.Set("statusTransition", "->"+string(StatusQueued))

	respond.Accepted(c, gin.H{
		"task_id":  task.ID,
		"status":   task.Status,
		"filename": task.Filename,
	})
}

type confirmRequest struct {
	TaskID   string          `json:"task_id"`
	Selected json.RawMessage `json:"selected_translations"`
}

func (h *Handler) confirm(c *gin.Context) {
	taskID, selected, err := parseConfirm(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	c.Set("taskId", taskID)

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	task, err := h.Svc.Confirm(ctx, taskID, selected)
	if err != nil {
		writeError(c, err, "failed to apply translations")
		return
	}
	c.Set("statusTransition", transitionLabel(StatusReview, StatusCompleted))

	respond.OK(c, gin.H{
		"task_id":     task.ID,
		"status":      task.Status,
		"output_file": task.OutputFile,
	})
}

func (h *Handler) preview(c *gin.Context) {
	file, name, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	p, err := h.Svc.Preview(c.Request.Context(), name, file)
	if err != nil {
		if errors.Is(err, archive.ErrFatal) {
			respond.Error(c, http.StatusBadRequest, "invalid_archive", "file is not a readable jar archive", nil)
			return
		}
		writeError(c, err, "failed to preview archive")
		return
	}
	c.Set("taskId", p.TaskID)
	respond.OK(c, p)
}

func (h *Handler) status(c *gin.Context) {
	taskID := c.Param("id")
	c.Set("taskId", taskID)
	task, err := h.Svc.Status(c.Request.Context(), taskID)
	if err != nil {
		writeError(c, err, "failed to fetch task")
		return
	}
	respond.OK(c, task)
}

func (h *Handler) download(c *gin.Context) {
	taskID := c.Param("id")
	c.Set("taskId", taskID)
	body, name, err := h.Svc.Download(c.Request.Context(), taskID)
	if err != nil {
		writeError(c, err, "failed to download archive")
		return
	}
	defer body.Close()

	c.Header("Content-Type", "application/java-archive")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}

func (h *Handler) list(c *gin.Context) {
	tasks, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to list tasks")
		return
	}
	respond.OK(c, gin.H{"tasks": tasks})
}

func (h *Handler) openUpload(c *gin.Context) (io.ReadCloser, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is too large", nil)
			return nil, "", false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return nil, "", false
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".jar") {
		respond.Error(c, http.StatusBadRequest, "validation_error", "only .jar files are supported", nil)
		return nil, "", false
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return nil, "", false
	}
	return file, fileHeader.Filename, true
}

// parseConfirm accepts either a JSON body or form fields. In both cases
// selected_translations may be a JSON object or a string holding one.
func parseConfirm(c *gin.Context) (string, map[string]string, error) {
	var (
		taskID string
		raw    []byte
	)
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req confirmRequest
		if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
			return "", nil, errors.New("invalid json body")
		}
		taskID = req.TaskID
		raw = req.Selected
		var nested string
		if len(raw) > 0 && raw[0] == '"' {
			if err := json.Unmarshal(raw, &nested); err != nil {
				return "", nil, errors.New("selected_translations must be a JSON object")
			}
			raw = []byte(nested)
		}
	} else {
		taskID = c.PostForm("task_id")
		raw = []byte(c.PostForm("selected_translations"))
	}

	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return "", nil, errors.New("task_id is required")
	}
	selected := map[string]string{}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &selected); err != nil {
			return "", nil, errors.New("selected_translations must be a JSON object of strings")
		}
	}
	return taskID, selected, nil
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "task not found", nil)
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrQueueFull):
		respond.Error(c, http.StatusServiceUnavailable, "queue_full", "the task queue is full, try again later", nil)
	case errors.Is(err, ErrSourceMissing):
		respond.Error(c, http.StatusConflict, "source_missing", err.Error(), nil)
	case errors.Is(err, ErrOutputMissing):
		respond.Error(c, http.StatusNotFound, "output_missing", err.Error(), nil)
	case errors.Is(err, ErrState):
		respond.Error(c, http.StatusBadRequest, "invalid_state", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
