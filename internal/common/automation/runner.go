package automation

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path"
	"strings"
	"time"

	"fulfillment-workers/internal/common/config"
	"fulfillment-workers/internal/common/logger"
)

// Runner executes one automation script and returns its stdout.
type Runner interface {
	Run(ctx context.Context, script string, args ...string) ([]byte, error)
}

// ExecRunner starts the script as a child process without a shell.
type ExecRunner struct {
	command     []string
	scriptsPath string
	fileExt     string
	timeout     time.Duration
	logger      logger.Logger
}

func NewExecRunner(cfg config.AutomationConfig, log logger.Logger) *ExecRunner {
	command := strings.Fields(cfg.Command)
	if len(command) == 0 {
		command = []string{"node"}
	}
	return &ExecRunner{
		command:     command,
		scriptsPath: cfg.ScriptsPath,
		fileExt:     cfg.FileExt,
		timeout:     time.Duration(cfg.Timeout) * time.Millisecond,
		logger:      log,
	}
}

func (r *ExecRunner) scriptPath(script string) string {
	return path.Join(r.scriptsPath, script+"."+r.fileExt)
}

func (r *ExecRunner) Run(ctx context.Context, script string, args ...string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	argv := make([]string, 0, len(r.command)+len(args))
	argv = append(argv, r.command[1:]...)
	argv = append(argv, r.scriptPath(script))
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, r.command[0], argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if stderr.Len() > 0 {
		r.logger.Warn("automation stderr", map[string]interface{}{
			"script": script,
			"stderr": stderr.String(),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", script, err)
	}

	r.logger.Debug("automation finished", map[string]interface{}{
		"script":   script,
		"duration": time.Since(start).String(),
		"stdout":   stdout.String(),
	})
	return stdout.Bytes(), nil
}
