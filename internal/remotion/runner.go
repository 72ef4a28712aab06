package remotion

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes a Node process with a request document on stdin. It
// mirrors the media executor but carries stdin and a working directory,
// which render scripts require.
type Runner interface {
	Run(ctx context.Context, dir, binary string, args []string, stdin []byte) (stdout string, stderr string, err error)
}

// NewProcessRunner returns the default runner backed by os/exec.
func NewProcessRunner() Runner {
	return processRunner{}
}

type processRunner struct{}

func (processRunner) Run(ctx context.Context, dir, binary string, args []string, stdin []byte) (string, string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
	if len(stdin) > 0 {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
