package runtime

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"path/filepath"
)

// Container executes commands inside a running docker or podman container
// via `exec`, and moves file content across the exec boundary as base64
// over stdin/stdout to avoid shell-quoting hazards.
type Container struct {
	Name    string
	Runtime string // "docker" or "podman"
	Workdir string
}

// NewContainer builds a Container runtime. Workdir defaults to "/" when
// empty.
func NewContainer(name, runtimeBin, workdir string) *Container {
	if workdir == "" {
		workdir = "/"
	}
	return &Container{Name: name, Runtime: runtimeBin, Workdir: workdir}
}

func (c *Container) execIn(ctx context.Context, command string, stdin []byte) (stdout, stderr string, returnCode int, err error) {
	args := []string{"exec"}
	if stdin != nil {
		args = append(args, "-i")
	}
	args = append(args, "-w", c.Workdir, c.Name, "bash", "-l", "-c", command)

	cmd := exec.CommandContext(ctx, c.Runtime, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	runErr := cmd.Run()
	code := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if runErr != nil {
		return "", "", 0, runErr
	}
	return outBuf.String(), errBuf.String(), code, nil
}

func (c *Container) Execute(ctx context.Context, command string) ExecuteResult {
	stdout, stderr, code, err := c.execIn(ctx, command, nil)
	if err != nil {
		return ExecuteResult{Status: StatusError, Message: err.Error()}
	}

	out := truncate(stdout)
	errOut := truncate(stderr)

	if code != 0 {
		return ExecuteResult{Status: StatusError, ReturnCode: code, Stdout: out, Stderr: errOut}
	}
	return ExecuteResult{Status: StatusSuccess, ReturnCode: 0, Stdout: out, Stderr: errOut}
}

func (c *Container) ReadFile(ctx context.Context, path string, startLine, limit int) ReadFileResult {
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	if startLine < 1 {
		startLine = 1
	}

	totalOut, _, code, err := c.execIn(ctx, fmt.Sprintf("sed -n '$=' '%s'", path), nil)
	if err != nil {
		return ReadFileResult{Status: StatusError, Message: err.Error()}
	}
	if code != 0 {
		return ReadFileResult{Status: StatusError, Message: fmt.Sprintf("could not stat %s", path)}
	}

	total := parseLineCount(totalOut)

	end := startLine + limit - 1
	contentOut, _, code, err := c.execIn(ctx, fmt.Sprintf("sed -n '%d,%dp' '%s'", startLine, end, path), nil)
	if err != nil {
		return ReadFileResult{Status: StatusError, Message: err.Error()}
	}
	if code != 0 {
		return ReadFileResult{Status: StatusError, Message: fmt.Sprintf("could not read %s", path)}
	}

	return ReadFileResult{
		Status:        StatusSuccess,
		Content:       contentOut,
		TotalLines:    total,
		StartLine:     startLine,
		ReturnedLines: len(splitLinesKeepEnds(contentOut)),
	}
}

func (c *Container) WriteFile(ctx context.Context, path, content string) WriteFileResult {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if _, _, code, err := c.execIn(ctx, fmt.Sprintf("mkdir -p \"$(dirname '%s')\"", path), nil); err != nil || code != 0 {
			if err == nil {
				err = fmt.Errorf("mkdir -p failed for %s", dir)
			}
			return WriteFileResult{Status: StatusError, Message: err.Error()}
		}
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	_, stderr, code, err := c.execIn(ctx, fmt.Sprintf("base64 -d > '%s'", path), []byte(encoded))
	if err != nil {
		return WriteFileResult{Status: StatusError, Message: err.Error()}
	}
	if code != 0 {
		return WriteFileResult{Status: StatusError, Message: stderr}
	}
	return WriteFileResult{Status: StatusSuccess}
}

func (c *Container) EditFile(ctx context.Context, path string, edits []Edit) EditFileResult {
	data, err := c.ReadFileInternal(ctx, path)
	if err != nil {
		return EditFileResult{Status: StatusError, Message: err.Error()}
	}

	updated, err := applyEdits(string(data), edits)
	if err != nil {
		return EditFileResult{Status: StatusError, Message: err.Error()}
	}

	if res := c.WriteFile(ctx, path, updated); res.Status != StatusSuccess {
		return EditFileResult{Status: StatusError, Message: res.Message}
	}
	return EditFileResult{Status: StatusSuccess}
}

func (c *Container) ReadFileInternal(ctx context.Context, path string) ([]byte, error) {
	stdout, stderr, code, err := c.execIn(ctx, fmt.Sprintf("base64 '%s'", path), nil)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("read %s: %s", path, stderr)
	}
	decoded, err := base64.StdEncoding.DecodeString(stripWhitespace(stdout))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return decoded, nil
}

func parseLineCount(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func stripWhitespace(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n', '\r', ' ', '\t':
			continue
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
