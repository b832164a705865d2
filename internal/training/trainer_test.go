package training

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ntphong404/rasa-control/internal/publisher"
	"github.com/ntphong404/rasa-control/internal/supervisor"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	recorded  []string
	uploadOK  bool
	recordOK  bool
}

func (f *fakePublisher) Publish(_ context.Context, modelPath string) publisher.UploadResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, modelPath)
	if !f.uploadOK {
		return publisher.UploadResult{Success: false, Error: "upload refused"}
	}
	return publisher.UploadResult{Success: true, Filename: filepath.Base(modelPath), Bucket: "model"}
}

func (f *fakePublisher) RecordModelURL(_ context.Context, modelName, modelURL string) publisher.MetadataUpdateResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, modelName+"="+modelURL)
	if !f.recordOK {
		return publisher.MetadataUpdateResult{Success: false, ModelName: modelName,
			Error: "no document found with name '" + modelName + "'"}
	}
	return publisher.MetadataUpdateResult{Success: true, MatchedCount: 1, ModifiedCount: 1, ModelName: modelName}
}

func (f *fakePublisher) recordedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.recorded...)
}

func newTestTrainer(t *testing.T, trainCmd []string, pub *fakePublisher) *Trainer {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires unix shell utilities")
	}
	work := t.TempDir()
	if err := os.MkdirAll(filepath.Join(work, "models"), 0o750); err != nil {
		t.Fatal(err)
	}
	cfg := Config{
		WorkDir:      work,
		DataDir:      "data",
		ModelsDir:    "models",
		ActionsFile:  "actions/actions.py",
		TrainCommand: trainCmd,
		TrainMatch:   []string{"train-token-" + filepath.Base(work)},
	}
	return NewTrainer(cfg, NewRegistry(), supervisor.New(), pub, nil)
}

func validRequest() StartRequest {
	return StartRequest{
		ModelName: "v1",
		NLU:       "version: \"3.1\"\nnlu: []\n",
		Stories:   "version: \"3.1\"\nstories: []\n",
		Domain:    "version: \"3.1\"\n",
	}
}

func waitTerminal(t *testing.T, tr *Trainer) Status {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		st := tr.Registry().Snapshot()
		if st.State.Terminal() {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("run never reached a terminal state: %+v", st)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStartValidation(t *testing.T) {
	tr := newTestTrainer(t, []string{"true"}, &fakePublisher{})
	cases := []struct {
		mutate func(*StartRequest)
		field  string
	}{
		{func(r *StartRequest) { r.NLU = "" }, "nlu"},
		{func(r *StartRequest) { r.Stories = "  " }, "stories"},
		{func(r *StartRequest) { r.Domain = "" }, "domain"},
		{func(r *StartRequest) { r.ModelName = "" }, "modelName"},
	}
	for _, tc := range cases {
		req := validRequest()
		tc.mutate(&req)
		_, err := tr.Start(req)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.field, err)
		}
		if ve.Field != tc.field {
			t.Fatalf("expected field %q, got %q", tc.field, ve.Field)
		}
		if st := tr.Registry().Snapshot(); st.IsTraining {
			t.Fatalf("%s: rejected request claimed the registry", tc.field)
		}
	}
}

func TestStartRejectsInvalidActionSource(t *testing.T) {
	tr := newTestTrainer(t, []string{"true"}, &fakePublisher{})
	req := validRequest()
	req.ActionSources = []string{"not a class"}
	_, err := tr.Start(req)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(ve.Error(), "index 0") {
		t.Fatalf("error should name the failing entry: %v", ve)
	}
	if st := tr.Registry().Snapshot(); st.IsTraining {
		t.Fatal("rejected batch claimed the registry")
	}
}

func TestRunCompletesAndPublishes(t *testing.T) {
	pub := &fakePublisher{uploadOK: true, recordOK: true}
	// the training command itself produces the artifact
	tr := newTestTrainer(t, []string{"/bin/sh", "-c", "echo model > models/model-test.tar.gz"}, pub)

	res, err := tr.Start(validRequest())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(res.FilesCreated) < 3 {
		t.Fatalf("expected nlu/stories/domain files, got %v", res.FilesCreated)
	}

	st := waitTerminal(t, tr)
	if st.State != StateCompleted {
		t.Fatalf("expected completed, got %s (%s)", st.State, st.ErrorMessage)
	}
	if st.ModelFile != "model-test.tar.gz" {
		t.Fatalf("unexpected model file: %q", st.ModelFile)
	}
	if st.UploadResult == nil || !st.UploadResult.Success {
		t.Fatalf("upload result missing: %+v", st.UploadResult)
	}
	if st.MetadataUpdateResult == nil || !st.MetadataUpdateResult.Success {
		t.Fatalf("metadata result missing: %+v", st.MetadataUpdateResult)
	}
	// document store receives the bare filename
	if calls := pub.recordedCalls(); len(calls) != 1 || calls[0] != "v1=model-test.tar.gz" {
		t.Fatalf("unexpected record calls: %v", calls)
	}
}

func TestRunUploadFailureDoesNotRegressCompleted(t *testing.T) {
	pub := &fakePublisher{uploadOK: false}
	tr := newTestTrainer(t, []string{"/bin/sh", "-c", "echo model > models/model-test.tar.gz"}, pub)
	if _, err := tr.Start(validRequest()); err != nil {
		t.Fatalf("start: %v", err)
	}
	st := waitTerminal(t, tr)
	if st.State != StateCompleted {
		t.Fatalf("upload failure must not regress completed, got %s", st.State)
	}
	if st.UploadResult == nil || st.UploadResult.Success {
		t.Fatalf("expected recorded upload failure: %+v", st.UploadResult)
	}
	if st.MetadataUpdateResult != nil {
		t.Fatal("metadata update must be skipped after failed upload")
	}
}

func TestRunNoArtifactFails(t *testing.T) {
	pub := &fakePublisher{uploadOK: true}
	tr := newTestTrainer(t, []string{"true"}, pub)
	if _, err := tr.Start(validRequest()); err != nil {
		t.Fatalf("start: %v", err)
	}
	st := waitTerminal(t, tr)
	if st.State != StateFailed {
		t.Fatalf("expected failed, got %s", st.State)
	}
	if !strings.Contains(st.ErrorMessage, "no model file generated") {
		t.Fatalf("unexpected error message: %q", st.ErrorMessage)
	}
	if len(pub.published) != 0 {
		t.Fatal("nothing should be published without an artifact")
	}
}

func TestRunNonZeroExitFails(t *testing.T) {
	pub := &fakePublisher{uploadOK: true}
	tr := newTestTrainer(t, []string{"/bin/sh", "-c", "echo broken >&2; exit 3"}, pub)
	if _, err := tr.Start(validRequest()); err != nil {
		t.Fatalf("start: %v", err)
	}
	st := waitTerminal(t, tr)
	if st.State != StateFailed {
		t.Fatalf("expected failed, got %s", st.State)
	}
	if !strings.Contains(st.ErrorMessage, "return code 3") || !strings.Contains(st.ErrorMessage, "broken") {
		t.Fatalf("error should carry exit code and stderr: %q", st.ErrorMessage)
	}
	if st.UploadResult != nil || st.MetadataUpdateResult != nil {
		t.Fatal("failed run must not attach publisher results")
	}
}

func TestFinetuneFlagAppended(t *testing.T) {
	tr := newTestTrainer(t, []string{"true"}, &fakePublisher{})
	req := validRequest()
	req.Finetune = true
	res, err := tr.Start(req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.TrainCommand[len(res.TrainCommand)-1] != "--finetune" {
		t.Fatalf("expected --finetune appended, got %v", res.TrainCommand)
	}
	waitTerminal(t, tr)
}

func TestStopWinsOverLateCompletion(t *testing.T) {
	pub := &fakePublisher{uploadOK: true}
	token := "trainer-stop-" + filepath.Base(t.TempDir())
	tr := newTestTrainer(t, []string{"/bin/sh", "-c", "sleep 30; echo model > models/model-late.tar.gz # " + token}, pub)
	tr.cfg.TrainMatch = []string{token}
	if _, err := tr.Start(validRequest()); err != nil {
		t.Fatalf("start: %v", err)
	}
	st, err := tr.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if st.State != StateStopped {
		t.Fatalf("expected stopped, got %s", st.State)
	}
	// the killed child unblocks the waiter; its failure report must lose
	time.Sleep(500 * time.Millisecond)
	if st := tr.Registry().Snapshot(); st.State != StateStopped {
		t.Fatalf("late completion overwrote stopped: %s", st.State)
	}
}

func TestStopWithoutRun(t *testing.T) {
	tr := newTestTrainer(t, []string{"true"}, &fakePublisher{})
	if _, err := tr.Stop(); !errors.Is(err, ErrNotTraining) {
		t.Fatalf("expected ErrNotTraining, got %v", err)
	}
}

func TestSecondStartRejectedWhileRunning(t *testing.T) {
	token := "trainer-dup-" + filepath.Base(t.TempDir())
	tr := newTestTrainer(t, []string{"/bin/sh", "-c", "sleep 30 # " + token}, &fakePublisher{})
	tr.cfg.TrainMatch = []string{token}
	if _, err := tr.Start(validRequest()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _, _ = tr.Stop() }()
	if _, err := tr.Start(validRequest()); !errors.Is(err, ErrAlreadyTraining) {
		t.Fatalf("expected ErrAlreadyTraining, got %v", err)
	}
}

func TestArtifactFilesWritten(t *testing.T) {
	tr := newTestTrainer(t, []string{"true"}, &fakePublisher{})
	req := validRequest()
	req.Rules = "version: \"3.1\"\nrules: []\n"
	if _, err := tr.Start(req); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitTerminal(t, tr)
	for _, p := range []string{
		filepath.Join(tr.cfg.WorkDir, "data", "nlu.yml"),
		filepath.Join(tr.cfg.WorkDir, "data", "stories.yml"),
		filepath.Join(tr.cfg.WorkDir, "data", "rules.yml"),
		filepath.Join(tr.cfg.WorkDir, "domain.yml"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected artifact %s: %v", p, err)
		}
	}
}
