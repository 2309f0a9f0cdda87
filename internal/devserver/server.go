package devserver

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/go-logr/logr"
	"github.com/joho/godotenv"

	"github.com/BMO568/vscode-cordova/internal/apperr"
	"github.com/BMO568/vscode-cordova/pkg/process"
)

// ServerConfig describes the dev server invocation for one session.
type ServerConfig struct {
	Tool             string   // e.g. "ionic"
	Args             []string // e.g. ["serve", "--no-open"]
	WorkingDirectory string
	Env              map[string]string
	EnvFiles         []string // optional .env files merged into the environment
	Detector         Options
}

// Server couples one running dev server process with its readiness detector.
// There is exactly one live Server per logical dev server; the component
// that started it must call Stop before discarding it.
type Server struct {
	handle   *process.Handle
	detector *Detector
	log      logr.Logger
}

// Start launches the dev server tool and begins classifying its output.
// A missing tool executable is reported with installation guidance, distinct
// from the tool starting and then failing.
func Start(ctx context.Context, executor process.Executor, cfg ServerConfig, log logr.Logger) (*Server, error) {
	cmd := makeCommand(ctx, cfg, log)
	detector := NewDetector(cfg.Detector, log)

	log.Info("starting dev server", "tool", cmd.Path, "args", cmd.Args[1:])
	handle, err := executor.Start(ctx, cmd, detector)
	if err != nil {
		if process.IsSpawnError(err) {
			return nil, apperr.Spawnf(
				"'%s' was not found; make sure it is installed (e.g. npm install -g %s) and available on PATH",
				cfg.Tool, cfg.Tool)
		}
		return nil, err
	}

	return &Server{
		handle:   handle,
		detector: detector,
		log:      log,
	}, nil
}

// WaitReady blocks until the app is ready (or the server is, for serve-only
// targets), a failure is detected, a timeout fires, or ctx is cancelled.
func (s *Server) WaitReady(ctx context.Context) (Result, error) {
	return s.detector.Wait(ctx)
}

// State returns the current readiness state.
func (s *Server) State() State {
	return s.detector.State()
}

// Stop terminates the dev server process. Idempotent.
func (s *Server) Stop() error {
	return s.handle.Kill()
}

func makeCommand(ctx context.Context, cfg ServerConfig, log logr.Logger) *exec.Cmd {
	cmd := exec.CommandContext(ctx, cfg.Tool, cfg.Args...)
	cmd.Dir = cfg.WorkingDirectory

	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	if len(cfg.EnvFiles) > 0 {
		additionalEnv, err := godotenv.Read(cfg.EnvFiles...)
		if err != nil {
			log.Error(err, "environment settings from .env file(s) were not applied", "EnvFiles", cfg.EnvFiles)
		} else {
			for k, v := range additionalEnv {
				env = append(env, fmt.Sprintf("%s=%s", k, v))
			}
		}
	}

	cmd.Env = append(os.Environ(), env...) // Include parent process environment
	return cmd
}
