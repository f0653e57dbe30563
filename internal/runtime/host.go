package runtime

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Host executes commands directly on the machine the agent process runs
// on and reads/writes files through the local filesystem.
type Host struct{}

// NewHost builds a Host runtime.
func NewHost() *Host {
	return &Host{}
}

func (h *Host) Execute(ctx context.Context, command string) ExecuteResult {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	returnCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		returnCode = exitErr.ExitCode()
	} else if err != nil {
		return ExecuteResult{Status: StatusError, Message: err.Error()}
	}

	out := truncate(stdout.String())
	errOut := truncate(stderr.String())

	if returnCode != 0 {
		return ExecuteResult{Status: StatusError, ReturnCode: returnCode, Stdout: out, Stderr: errOut}
	}
	return ExecuteResult{Status: StatusSuccess, ReturnCode: 0, Stdout: out, Stderr: errOut}
}

func (h *Host) ReadFile(ctx context.Context, path string, startLine, limit int) ReadFileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ReadFileResult{Status: StatusError, Message: err.Error()}
	}

	if limit <= 0 {
		limit = DefaultReadLimit
	}
	if startLine < 1 {
		startLine = 1
	}

	lines := splitLinesKeepEnds(string(data))
	total := len(lines)

	start := startLine
	end := start + limit - 1
	if end > total {
		end = total
	}

	var content string
	if start > total {
		content = ""
	} else {
		content = strings.Join(lines[start-1:end], "")
	}

	return ReadFileResult{
		Status:        StatusSuccess,
		Content:       content,
		TotalLines:    total,
		StartLine:     start,
		ReturnedLines: len(splitLinesKeepEnds(content)),
	}
}

func (h *Host) WriteFile(ctx context.Context, path, content string) WriteFileResult {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return WriteFileResult{Status: StatusError, Message: err.Error()}
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return WriteFileResult{Status: StatusError, Message: err.Error()}
	}
	return WriteFileResult{Status: StatusSuccess}
}

func (h *Host) EditFile(ctx context.Context, path string, edits []Edit) EditFileResult {
	data, err := h.ReadFileInternal(ctx, path)
	if err != nil {
		return EditFileResult{Status: StatusError, Message: err.Error()}
	}

	updated, err := applyEdits(string(data), edits)
	if err != nil {
		return EditFileResult{Status: StatusError, Message: err.Error()}
	}

	if res := h.WriteFile(ctx, path, updated); res.Status != StatusSuccess {
		return EditFileResult{Status: StatusError, Message: res.Message}
	}
	return EditFileResult{Status: StatusSuccess}
}

func (h *Host) ReadFileInternal(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// splitLinesKeepEnds splits s into lines, each retaining its trailing
// newline (matching Python's readlines semantics), except a possible
// final line with no trailing newline.
func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
