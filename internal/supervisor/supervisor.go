package supervisor

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/ntphong404/rasa-control/internal/metrics"
)

// Supervisor finds and terminates OS processes by command signature and
// launches replacement processes detached from the caller. It keeps no
// per-process state; identity is re-derived from the live process table on
// every call, so losing supervisor state across restarts is tolerated.
type Supervisor struct{}

func New() *Supervisor { return &Supervisor{} }

// TerminateMatching kills every live process whose command line matches the
// spec signature. Processes that vanish, deny access or are already zombies
// during inspection are skipped. Returns the number of processes killed.
func (s *Supervisor) TerminateMatching(spec Spec) int {
	tokens := spec.MatchTokens()
	procs, err := process.Processes()
	if err != nil {
		slog.Warn("process enumeration failed", "service", spec.Name, "error", err)
		return 0
	}
	killed := 0
	for _, p := range procs {
		cmdline, err := p.Cmdline()
		if err != nil || cmdline == "" {
			continue
		}
		if !Matches(tokens, cmdline) {
			continue
		}
		if err := p.Kill(); err != nil {
			// best-effort: the process may have exited in between
			continue
		}
		killed++
		metrics.IncProcessKilled(spec.Name)
		slog.Info("killed process", "service", spec.Name, "pid", p.Pid)
	}
	return killed
}

// Launch starts a new detached process for the spec. Output is discarded
// unless a log directory is configured, in which case stdout/stderr are
// rotated via lumberjack. The child is reaped by a background goroutine so
// it never lingers as a zombie.
func (s *Supervisor) Launch(spec Spec) error {
	if len(spec.Command) == 0 {
		return errors.New("supervisor: empty command")
	}
	// #nosec G204 -- commands come from operator configuration
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.SysProcAttr = detachedSysProcAttr()

	outW, errW, err := spec.Log.Writers(spec.Name)
	if err != nil {
		return err
	}
	if outW != nil {
		cmd.Stdout = outW
	}
	if errW != nil {
		cmd.Stderr = errW
	}

	if err := cmd.Start(); err != nil {
		slog.Error("failed to start process", "service", spec.Name, "command", spec.CommandLine(), "error", err)
		return err
	}
	metrics.IncProcessStarted(spec.Name)
	slog.Info("started process", "service", spec.Name, "pid", cmd.Process.Pid, "command", spec.CommandLine())

	go func() {
		_ = cmd.Wait()
		if outW != nil {
			_ = outW.Close()
		}
		if errW != nil {
			_ = errW.Close()
		}
	}()
	return nil
}

// Restart kills any prior matching incarnation and launches a fresh one.
func (s *Supervisor) Restart(spec Spec) error {
	s.TerminateMatching(spec)
	return s.Launch(spec)
}
