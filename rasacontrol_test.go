package rasacontrol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNormalizesPaths(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	work := t.TempDir()
	cfg.Rasa.WorkDir = work

	ctl, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = ctl.Close(context.Background()) }()

	require.Equal(t, filepath.Join(work, "data"), cfg.Rasa.DataDir)
	require.Equal(t, filepath.Join(work, "models"), cfg.Rasa.ModelsDir)
	require.Equal(t, filepath.Join(work, "actions", "actions.py"), cfg.Rasa.ActionsFile)

	st := ctl.TrainingStatus()
	require.False(t, st.IsTraining)
	require.Equal(t, "idle", string(st.State))
}

func TestNewKeepsAbsolutePaths(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	abs := filepath.Join(t.TempDir(), "models")
	cfg.Rasa.WorkDir = t.TempDir()
	cfg.Rasa.ModelsDir = abs

	ctl, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = ctl.Close(context.Background()) }()

	require.Equal(t, abs, cfg.Rasa.ModelsDir)
}

func TestHandlerServesControlSurface(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Rasa.WorkDir = t.TempDir()

	ctl, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = ctl.Close(context.Background()) }()

	h := ctl.Handler()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/training-status", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestNewWithHistorySink(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Rasa.WorkDir = t.TempDir()
	cfg.History.DSN = filepath.Join(t.TempDir(), "history.db")

	ctl, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, ctl.Close(context.Background()))
}

func TestNewRejectsBadHistoryDSN(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Rasa.WorkDir = t.TempDir()
	cfg.History.DSN = "redis://localhost:6379"

	_, err = New(cfg)
	require.Error(t, err)
}
