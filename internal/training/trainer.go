package training

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ntphong404/rasa-control/internal/actionsfile"
	"github.com/ntphong404/rasa-control/internal/config"
	"github.com/ntphong404/rasa-control/internal/history"
	"github.com/ntphong404/rasa-control/internal/metrics"
	"github.com/ntphong404/rasa-control/internal/publisher"
	"github.com/ntphong404/rasa-control/internal/supervisor"
)

// Publisher is the narrow slice of the artifact publisher the trainer needs.
type Publisher interface {
	Publish(ctx context.Context, modelPath string) publisher.UploadResult
	RecordModelURL(ctx context.Context, modelName, modelURL string) publisher.MetadataUpdateResult
}

// Config fixes the command lines and paths of one trainer instance.
type Config struct {
	WorkDir     string
	DataDir     string // relative paths resolve against WorkDir
	ModelsDir   string
	ActionsFile string

	TrainCommand []string // full argv of the training executable
	TrainMatch   []string // signature tokens used to find/kill a running train

	// ActionServerSpec is launched after the handler file is regenerated.
	ActionServerSpec supervisor.Spec
}

// StartRequest carries one training run's inputs.
type StartRequest struct {
	ModelName     string
	NLU           string
	Stories       string
	Rules         string
	Domain        string
	ActionSources []string
	Finetune      bool
}

// StartResult is returned to the accepted request; the run itself completes
// asynchronously and reports through the registry.
type StartResult struct {
	FilesCreated []string
	TrainCommand []string
	ActionsCount int
}

// Trainer coordinates the single global training pipeline: artifact
// materialization, the background run of the training executable, and the
// publish/record side effects on completion.
type Trainer struct {
	cfg  Config
	reg  *Registry
	sup  *supervisor.Supervisor
	pub  Publisher
	hist history.Sink // nil disables run history
}

func NewTrainer(cfg Config, reg *Registry, sup *supervisor.Supervisor, pub Publisher, hist history.Sink) *Trainer {
	return &Trainer{cfg: cfg, reg: reg, sup: sup, pub: pub, hist: hist}
}

// Registry exposes the status registry for read-only snapshots.
func (t *Trainer) Registry() *Registry { return t.reg }

// Start validates the request, claims the registry, materializes the input
// artifacts and launches the training executable on a background goroutine.
// The call returns as soon as the run is started; completion is reported via
// the registry only.
func (t *Trainer) Start(req StartRequest) (StartResult, error) {
	if strings.TrimSpace(req.NLU) == "" {
		return StartResult{}, &ValidationError{Field: "nlu"}
	}
	if strings.TrimSpace(req.Stories) == "" {
		return StartResult{}, &ValidationError{Field: "stories"}
	}
	if strings.TrimSpace(req.Domain) == "" {
		return StartResult{}, &ValidationError{Field: "domain"}
	}
	if strings.TrimSpace(req.ModelName) == "" {
		return StartResult{}, &ValidationError{Field: "modelName"}
	}

	// Validate every action source before any file is written.
	var actionsContent string
	if len(req.ActionSources) > 0 {
		content, err := actionsfile.Render(req.ActionSources)
		if err != nil {
			return StartResult{}, &ValidationError{Msg: err.Error()}
		}
		actionsContent = content
	}

	if _, err := t.reg.Begin(req.ModelName); err != nil {
		return StartResult{}, err
	}

	filesCreated, err := t.writeArtifacts(req, actionsContent)
	if err != nil {
		t.reg.Abort("file creation failed: " + err.Error())
		return StartResult{}, fmt.Errorf("file creation failed: %w", err)
	}

	if actionsContent != "" {
		slog.Info("restarting action server after handler update")
		if err := t.sup.Restart(t.cfg.ActionServerSpec); err != nil {
			slog.Warn("action server restart failed", "error", err)
		}
	}

	cmdArgs := append([]string{}, t.cfg.TrainCommand...)
	if req.Finetune {
		cmdArgs = append(cmdArgs, "--finetune")
	}

	metrics.IncTrainingStarted()
	go t.run(cmdArgs, req.ModelName)

	slog.Info("training started", "model_name", req.ModelName, "finetune", req.Finetune)
	return StartResult{
		FilesCreated: filesCreated,
		TrainCommand: cmdArgs,
		ActionsCount: len(req.ActionSources),
	}, nil
}

// Stop kills the running training process and forces the stopped state.
// It does not wait for confirmation that the process actually exited; the
// killed child unblocks the background waiter, whose late completion loses
// against the already-recorded terminal state.
func (t *Trainer) Stop() (Status, error) {
	if st := t.reg.Snapshot(); !st.IsTraining {
		return st, ErrNotTraining
	}
	t.sup.TerminateMatching(supervisor.Spec{Name: "rasa-train", Match: t.cfg.TrainMatch})
	st, err := t.reg.ForceStop("Training was manually stopped")
	if err != nil {
		return st, err
	}
	slog.Info("training manually stopped", "model_name", st.ModelName)
	t.record(st)
	return st, nil
}

func (t *Trainer) writeArtifacts(req StartRequest, actionsContent string) ([]string, error) {
	dataDir := t.resolve(t.cfg.DataDir)
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, err
	}
	created := make([]string, 0, 5)

	write := func(path, content string) error {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return err
		}
		created = append(created, path)
		return nil
	}

	if err := write(filepath.Join(dataDir, "nlu.yml"), req.NLU); err != nil {
		return nil, err
	}
	if err := write(filepath.Join(dataDir, "stories.yml"), req.Stories); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Rules) != "" {
		if err := write(filepath.Join(dataDir, "rules.yml"), req.Rules); err != nil {
			return nil, err
		}
	}
	if err := write(filepath.Join(t.cfg.WorkDir, "domain.yml"), req.Domain); err != nil {
		return nil, err
	}
	if actionsContent != "" {
		path := t.resolve(t.cfg.ActionsFile)
		if err := actionsfile.WriteAtomic(path, actionsContent); err != nil {
			return nil, err
		}
		created = append(created, path)
	}
	return created, nil
}

// run executes the training child and owns the terminal transition for this
// run. It is the sole terminal-state writer unless preempted by Stop, in
// which case every finish below becomes a no-op.
func (t *Trainer) run(cmdArgs []string, modelName string) {
	var stdout, stderr bytes.Buffer
	// #nosec G204 -- the training command comes from operator configuration
	cmd := exec.Command(cmdArgs[0], cmdArgs[1:]...)
	cmd.Dir = t.cfg.WorkDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Info("training process starting", "command", strings.Join(cmdArgs, " "))
	err := cmd.Run()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := fmt.Sprintf("training failed with return code %d", exitErr.ExitCode())
			if s := strings.TrimSpace(stderr.String()); s != "" {
				msg += ": " + s
			}
			t.finish(func(st *Status) {
				st.State = StateFailed
				st.ErrorMessage = msg
			})
		} else {
			t.finish(func(st *Status) {
				st.State = StateFailed
				st.ErrorMessage = "training process error: " + err.Error()
			})
		}
		return
	}

	modelPath, err := t.newestArtifact()
	if err != nil || modelPath == "" {
		t.finish(func(st *Status) {
			st.State = StateFailed
			st.ErrorMessage = "no model file generated after training"
		})
		return
	}
	modelFile := filepath.Base(modelPath)
	slog.Info("training completed", "model_file", modelFile)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	up := t.pub.Publish(ctx, modelPath)
	var meta *publisher.MetadataUpdateResult
	if up.Success && modelName != "" {
		// The backend expects the bare filename, not a full URL.
		m := t.pub.RecordModelURL(ctx, modelName, modelFile)
		meta = &m
	}

	t.finish(func(st *Status) {
		st.State = StateCompleted
		st.ModelFile = modelFile
		st.UploadResult = &up
		st.MetadataUpdateResult = meta
	})
}

// finish applies a terminal transition through the registry CAS and records
// the outcome when the transition won.
func (t *Trainer) finish(apply func(st *Status)) {
	st, ok := t.reg.FinishIfTraining(apply)
	if !ok {
		slog.Debug("late training completion ignored", "state", st.State)
		return
	}
	t.record(st)
}

func (t *Trainer) record(st Status) {
	elapsed := st.Elapsed(time.Now())
	metrics.ObserveTrainingFinished(string(st.State), elapsed)
	if t.hist == nil {
		return
	}
	rec := history.Record{
		ModelName:  st.ModelName,
		ModelFile:  st.ModelFile,
		Status:     string(st.State),
		StartedAt:  st.StartTime,
		FinishedAt: time.Now(),
		Error:      st.ErrorMessage,
	}
	if st.UploadResult != nil {
		rec.Uploaded = st.UploadResult.Success
		rec.ModelURL = st.UploadResult.URL
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.hist.Append(ctx, rec); err != nil {
		slog.Warn("failed to record training history", "error", err)
	}
}

// newestArtifact returns the most recently modified model archive in the
// models directory, or "" when none exists.
func (t *Trainer) newestArtifact() (string, error) {
	dir := t.resolve(t.cfg.ModelsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var newest string
	var newestAt time.Time
	for _, e := range entries {
		if e.IsDir() || !config.HasSupportedExtension(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest = filepath.Join(dir, e.Name())
			newestAt = info.ModTime()
		}
	}
	return newest, nil
}

func (t *Trainer) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(t.cfg.WorkDir, p)
}
