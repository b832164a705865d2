package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/ntphong404/rasa-control/internal/actionsfile"
	"github.com/ntphong404/rasa-control/internal/config"
)

func (r *Router) handleListActions(c *gin.Context) {
	names, err := actionsfile.Names(r.cfg.Rasa.ActionsFile)
	if err != nil {
		internalError(c, "Internal server error", gin.H{"error": err.Error()})
		return
	}
	respondOK(c, "Action names retrieved successfully", gin.H{
		"actions": names,
		"total":   len(names),
	})
}

type pushActionsRequest struct {
	Actions []string `json:"actions"`
}

func (r *Router) handlePushActions(c *gin.Context) {
	var req pushActionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON data", nil)
		return
	}
	if req.Actions == nil {
		badRequest(c, "Missing or invalid 'actions' array", nil)
		return
	}
	content, err := actionsfile.Render(req.Actions)
	if err != nil {
		badRequest(c, err.Error(), nil)
		return
	}
	if err := actionsfile.WriteAtomic(r.cfg.Rasa.ActionsFile, content); err != nil {
		internalError(c, "Internal server error", gin.H{"error": err.Error()})
		return
	}
	restarted := true
	if err := r.sup.Restart(r.actionServerSpec(nil)); err != nil {
		slog.Warn("action server restart failed", "error", err)
		restarted = false
	}
	respondOK(c, "Actions file updated and action server restarted successfully", gin.H{
		"total_actions":           len(req.Actions),
		"action_server_restarted": restarted,
	})
}

func (r *Router) handleListModels(c *gin.Context) {
	entries, err := os.ReadDir(r.cfg.Rasa.ModelsDir)
	if err != nil {
		internalError(c, "Internal server error", gin.H{"error": err.Error()})
		return
	}
	models := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && config.HasSupportedExtension(e.Name()) {
			models = append(models, e.Name())
		}
	}
	respondOK(c, "Models listed successfully", gin.H{
		"models": models,
		"total":  len(models),
	})
}

type fetchModelRequest struct {
	URL string `json:"url"`
}

// handleFetchModel downloads a model archive from a URL into the local
// models directory. A partial download never leaves a file behind.
func (r *Router) handleFetchModel(c *gin.Context) {
	var req fetchModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON data", nil)
		return
	}
	if req.URL == "" {
		badRequest(c, "Missing or invalid 'url'", nil)
		return
	}
	parsed, err := url.Parse(req.URL)
	if err != nil {
		badRequest(c, "Missing or invalid 'url'", nil)
		return
	}
	filename := path.Base(parsed.Path)
	if filename == "." || filename == "/" || !config.HasSupportedExtension(filename) {
		badRequest(c, "Invalid model filename in URL", nil)
		return
	}
	if err := os.MkdirAll(r.cfg.Rasa.ModelsDir, 0o750); err != nil {
		internalError(c, "Failed to download model", gin.H{"error": err.Error()})
		return
	}
	localPath := filepath.Join(r.cfg.Rasa.ModelsDir, filename)
	if _, err := os.Stat(localPath); err == nil {
		badRequest(c, fmt.Sprintf("Model '%s' already exists locally", filename), nil)
		return
	}

	size, err := r.download(req.URL, localPath)
	if err != nil {
		badRequest(c, "Download failed from URL", gin.H{
			"error": err.Error(),
			"url":   req.URL,
		})
		return
	}
	slog.Info("model downloaded", "filename", filename, "size", size)
	respondOK(c, "Model downloaded successfully", gin.H{
		"filename":   filename,
		"local_path": localPath,
		"source_url": req.URL,
		"size":       size,
	})
}

func (r *Router) download(srcURL, dst string) (int64, error) {
	resp, err := r.fetch.Get(srcURL)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusBadRequest {
		return 0, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	f, err := os.Create(dst) // #nosec G304 -- path is models dir + validated base name
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	return n, nil
}

func (r *Router) handleMinioModels(c *gin.Context) {
	listing, err := r.pub.ListModels(c.Request.Context())
	if err != nil {
		badRequest(c, "Failed to list MinIO models", gin.H{"error": err.Error()})
		return
	}
	if !listing.BucketExists {
		respondOK(c, "No models found", gin.H{
			"bucket":        listing.Bucket,
			"bucket_exists": false,
			"models":        []any{},
		})
		return
	}
	respondOK(c, "Models retrieved successfully", gin.H{
		"bucket":        listing.Bucket,
		"bucket_exists": true,
		"total_models":  len(listing.Models),
		"models":        listing.Models,
	})
}
