package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"fileshare/internal/server/service"
	"fileshare/internal/server/session"
)

// Handler contains the HTTP handlers for the file sharing service.
type Handler struct {
	registry *service.Registry
	engine   *service.Engine
	guard    *session.Guard
	metrics  *Metrics
	baseURL  string
}

// NewHandler creates a new handler. metrics may be nil.
func NewHandler(registry *service.Registry, engine *service.Engine, guard *session.Guard, metrics *Metrics, baseURL string) *Handler {
	return &Handler{
		registry: registry,
		engine:   engine,
		guard:    guard,
		metrics:  metrics,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

type linkEntry struct {
	CustomLink  string    `json:"custom_link"`
	Filename    string    `json:"filename"`
	Size        string    `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	IsPublic    bool      `json:"is_public"`
	HasPassword bool      `json:"has_password"`
	DownloadURL string    `json:"download_url"`
}

// HandleIndex handles GET /.
// Lists every link whose file is still on disk.
func (h *Handler) HandleIndex(c echo.Context) error {
	links, err := h.registry.List(c.Request().Context())
	if err != nil {
		slog.Error("failed to list links", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list files"})
	}

	entries := make([]linkEntry, 0, len(links))
	for _, link := range links {
		size, err := h.registry.FileSize(link)
		if err != nil {
			continue
		}
		entries = append(entries, linkEntry{
			CustomLink:  link.CustomLink,
			Filename:    link.Filename(),
			Size:        humanizeBytes(size),
			CreatedAt:   link.CreatedAt,
			IsPublic:    link.IsPublic,
			HasPassword: link.HasPassword(),
			DownloadURL: h.baseURL + "/download/" + url.PathEscape(link.CustomLink),
		})
	}

	resp := echo.Map{"files": entries}
	addFlags(c, resp)
	return c.JSON(http.StatusOK, resp)
}

// HandleUpload handles POST /upload.
// Accepts a multipart form with "custom_link", "file", "is_public" and
// "file_password" fields.
func (h *Handler) HandleUpload(c echo.Context) error {
	var form uploadForm
	if err := c.Bind(&form); err != nil {
		return h.uploadFailed(c, errors.New("malformed form"))
	}
	if err := c.Validate(&form); err != nil {
		return h.uploadFailed(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return h.uploadFailed(c, errors.New("no file selected"))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return h.uploadFailed(c, errors.New("failed to read uploaded file"))
	}
	defer src.Close()

	result, err := h.registry.Create(c.Request().Context(), service.CreateRequest{
		CustomLink: form.CustomLink,
		Filename:   fileHeader.Filename,
		Data:       src,
		Size:       fileHeader.Size,
		IsPublic:   form.public(),
		Password:   form.FilePassword,
	})
	if err != nil {
		return h.uploadFailed(c, err)
	}

	h.metrics.ObserveUpload(ResultSuccess)
	return c.Redirect(http.StatusSeeOther, fileURL(result.Link.CustomLink, "success", "File uploaded successfully"))
}

func (h *Handler) uploadFailed(c echo.Context, err error) error {
	h.metrics.ObserveUpload(ResultFailure)
	slog.Warn("upload failed", "error", err)
	return c.Redirect(http.StatusSeeOther, indexURL("error", "Upload failed: "+err.Error()))
}

// HandleFileInfo handles GET /file/:link.
// Returns what a client needs to render the file page.
func (h *Handler) HandleFileInfo(c echo.Context) error {
	customLink := c.Param("link")

	link, err := h.registry.Find(c.Request().Context(), customLink)
	if err != nil {
		return mapServiceError(c, err)
	}

	escaped := url.PathEscape(link.CustomLink)
	resp := echo.Map{
		"custom_link":       link.CustomLink,
		"filename":          link.Filename(),
		"requires_password": link.HasPassword(),
		"is_public":         link.IsPublic,
		"is_admin":          h.engine.IsAdmin(basicCredentials(c)),
		"download_link":     h.baseURL + "/download/" + escaped,
		"preview_link":      h.baseURL + "/preview/" + escaped,
	}
	addFlags(c, resp)
	return c.JSON(http.StatusOK, resp)
}

// HandleDownload handles GET|POST /download/:link.
func (h *Handler) HandleDownload(c echo.Context) error {
	return h.serve(c, false)
}

// HandlePreview handles GET|POST /preview/:link.
func (h *Handler) HandlePreview(c echo.Context) error {
	return h.serve(c, true)
}

// serve runs the access decision for the link and streams the file on Allow.
func (h *Handler) serve(c echo.Context, inline bool) error {
	customLink := c.Param("link")

	res, err := h.engine.Resolve(c.Request().Context(), service.AccessRequest{
		CustomLink:   customLink,
		Admin:        basicCredentials(c),
		FilePassword: c.FormValue("file_password"),
	})
	if err != nil {
		slog.Error("access resolution failed", "custom_link", customLink, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	h.metrics.ObserveDecision(res.Decision)
	slog.Debug("access decision", "custom_link", customLink, "decision", res.Decision.String())

	switch res.Decision {
	case service.DenyNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
	case service.RequireAuth:
		return challenge(c)
	case service.RequirePassword:
		return c.Redirect(http.StatusSeeOther, "/file/"+url.PathEscape(customLink))
	case service.DenyWrongPassword:
		return c.Redirect(http.StatusSeeOther, fileURL(customLink, "error", "incorrect_password"))
	}

	link := res.Link
	if _, err := h.registry.FileSize(link); err != nil {
		slog.Warn("file missing on disk", "custom_link", customLink, "path", link.FilePath)
		return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
	}

	if inline {
		return c.Inline(link.FilePath, link.Filename())
	}
	return c.Attachment(link.FilePath, link.Filename())
}

// HandleToggleVisibility handles POST /toggle-visibility/:link.
func (h *Handler) HandleToggleVisibility(c echo.Context) error {
	link, err := h.registry.ToggleVisibility(c.Request().Context(), c.Param("link"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, indexURL("error", "File not found"))
		}
		slog.Error("failed to toggle visibility", "custom_link", c.Param("link"), "error", err)
		return c.Redirect(http.StatusSeeOther, indexURL("error", "Error changing visibility: "+err.Error()))
	}

	h.metrics.ObserveToggle()
	visibility := "private"
	if link.IsPublic {
		visibility = "public"
	}
	return c.Redirect(http.StatusSeeOther, fileURL(link.CustomLink, "success", "File visibility changed to "+visibility))
}

// HandleDelete handles POST /delete/:link.
func (h *Handler) HandleDelete(c echo.Context) error {
	err := h.registry.Delete(c.Request().Context(), c.Param("link"))
	switch {
	case err == nil:
		h.metrics.ObserveDelete(ResultSuccess)
		return c.Redirect(http.StatusSeeOther, indexURL("success", "File deleted successfully"))
	case errors.Is(err, service.ErrNotFound):
		h.metrics.ObserveDelete(ResultMissing)
		return c.Redirect(http.StatusSeeOther, indexURL("error", "File not found"))
	default:
		h.metrics.ObserveDelete(ResultFailure)
		return c.Redirect(http.StatusSeeOther, indexURL("error", "Error deleting file: "+err.Error()))
	}
}

// HandlePublicFiles handles GET /files.
// Lists public links only.
func (h *Handler) HandlePublicFiles(c echo.Context) error {
	links, err := h.registry.List(c.Request().Context())
	if err != nil {
		slog.Error("failed to list links", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list files"})
	}

	type publicEntry struct {
		CustomLink string `json:"custom_link"`
		Filename   string `json:"filename"`
	}
	entries := make([]publicEntry, 0, len(links))
	for _, link := range links {
		if link.IsPublic {
			entries = append(entries, publicEntry{CustomLink: link.CustomLink, Filename: link.Filename()})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"files": entries})
}

// HandleLogout handles GET /logout.
// Forgets the session and answers with a Basic challenge so the browser
// drops its cached credentials.
func (h *Handler) HandleLogout(c echo.Context) error {
	h.guard.Logout(c.Request().Header.Get(echo.HeaderAuthorization))
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, fmt.Sprintf("Basic realm=%q", realm))
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": "logged out"})
}

// HandleSessionStatus handles GET /session-status.
func (h *Handler) HandleSessionStatus(c echo.Context) error {
	remaining, ok := h.guard.Tracker().Remaining(c.Request().Header.Get(echo.HeaderAuthorization))
	return c.JSON(http.StatusOK, echo.Map{
		"session_active": ok,
		"time_remaining": int64(remaining.Seconds()),
	})
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.registry.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// mapServiceError translates service-layer errors into JSON responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
	case errors.Is(err, service.ErrInvalidLink):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid custom link"})
	case errors.Is(err, service.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
			"error": "file exceeds maximum allowed size",
		})
	default:
		slog.Error("request failed", "path", c.Request().URL.Path, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

func challenge(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, fmt.Sprintf("Basic realm=%q", realm))
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
}

// basicCredentials returns the Basic credentials on the request, or nil.
func basicCredentials(c echo.Context) *service.BasicCredentials {
	username, password, ok := c.Request().BasicAuth()
	if !ok {
		return nil
	}
	return &service.BasicCredentials{Username: username, Password: password}
}

// addFlags echoes the success/error query flags set by redirects.
func addFlags(c echo.Context, resp echo.Map) {
	if msg := c.QueryParam("success"); msg != "" {
		resp["success"] = msg
	}
	if msg := c.QueryParam("error"); msg != "" {
		resp["error"] = msg
	}
}

func indexURL(flag, msg string) string {
	return "/?" + url.Values{flag: {msg}}.Encode()
}

func fileURL(customLink, flag, msg string) string {
	return "/file/" + url.PathEscape(customLink) + "?" + url.Values{flag: {msg}}.Encode()
}

// humanizeBytes formats a byte count into a human-readable string.
func humanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
