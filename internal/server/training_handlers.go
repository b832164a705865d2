package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ntphong404/rasa-control/internal/training"
)

type trainRequest struct {
	ModelName string   `json:"modelName"`
	Firetune  bool     `json:"firetune"`
	Actions   []string `json:"actions"`
	NLU       string   `json:"nlu"`
	Stories   string   `json:"stories"`
	Rules     string   `json:"rules"`
	Domain    string   `json:"domain"`
}

func (r *Router) handleTrain(c *gin.Context) {
	var req trainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON data", nil)
		return
	}
	res, err := r.trainer.Start(training.StartRequest{
		ModelName:     req.ModelName,
		NLU:           req.NLU,
		Stories:       req.Stories,
		Rules:         req.Rules,
		Domain:        req.Domain,
		ActionSources: req.Actions,
		Finetune:      req.Firetune,
	})
	if err != nil {
		var ve *training.ValidationError
		switch {
		case errors.Is(err, training.ErrAlreadyTraining):
			st := r.trainer.Registry().Snapshot()
			elapsed := st.Elapsed(time.Now())
			badRequest(c, "Training is already in progress", gin.H{
				"current_status":         st.State,
				"elapsed_time":           elapsed.Seconds(),
				"elapsed_time_formatted": training.FormatElapsed(elapsed),
				"message":                "Please wait for current training to complete or check /training-status",
			})
		case errors.As(err, &ve):
			badRequest(c, ve.Error(), nil)
		default:
			internalError(c, "Training failed", gin.H{"error": err.Error()})
		}
		return
	}
	respondOK(c, "Training started successfully", gin.H{
		"firetune":      req.Firetune,
		"files_created": res.FilesCreated,
		"actions_count": res.ActionsCount,
		"train_command": strings.Join(res.TrainCommand, " "),
		"status":        "training_in_progress",
		"message":       "Training process has been started. Check models directory for completed model.",
	})
}

func (r *Router) handleTrainingStatus(c *gin.Context) {
	st := r.trainer.Registry().Snapshot()
	var startTime, elapsed, elapsedFmt any
	if !st.StartTime.IsZero() {
		startTime = float64(st.StartTime.UnixMilli()) / 1000
		d := st.Elapsed(time.Now())
		elapsed = d.Seconds()
		elapsedFmt = training.FormatElapsed(d)
	}
	respondOK(c, "Training status retrieved successfully", gin.H{
		"is_training":            st.IsTraining,
		"status":                 st.State,
		"start_time":             startTime,
		"model_file":             orNil(st.ModelFile),
		"model_name":             orNil(st.ModelName),
		"elapsed_time":           elapsed,
		"elapsed_time_formatted": elapsedFmt,
		"error_message":          orNil(st.ErrorMessage),
		"upload_result":          st.UploadResult,
		"metadata_update_result": st.MetadataUpdateResult,
	})
}

func (r *Router) handleStopTraining(c *gin.Context) {
	if _, err := r.trainer.Stop(); err != nil {
		if errors.Is(err, training.ErrNotTraining) {
			badRequest(c, "No training process is currently running", nil)
			return
		}
		internalError(c, "Failed to stop training", gin.H{"error": err.Error()})
		return
	}
	respondOK(c, "Training stopped successfully", gin.H{
		"message":    "All Rasa training processes have been terminated",
		"new_status": "stopped",
	})
}

func (r *Router) handleTrainingHistory(c *gin.Context) {
	if r.hist == nil {
		respondOK(c, "Training history is disabled", gin.H{
			"records": []any{},
			"total":   0,
		})
		return
	}
	limit := 50
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := r.hist.Recent(c.Request.Context(), limit)
	if err != nil {
		internalError(c, "Failed to read training history", gin.H{"error": err.Error()})
		return
	}
	respondOK(c, "Training history retrieved successfully", gin.H{
		"records": records,
		"total":   len(records),
	})
}
