//go:build linux

package runtime

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	fc "github.com/firecracker-microvm/firecracker-go-sdk"
	fcmodels "github.com/firecracker-microvm/firecracker-go-sdk/client/models"
	"github.com/google/uuid"
)

// FirecrackerConfig describes the kernel, rootfs and resource limits for a
// microVM-backed Runtime.
type FirecrackerConfig struct {
	KernelPath string
	RootFSPath string
	VCPUs      int64
	MemSizeMB  int64
	BootArgs   string
	// GuestAgentPort is the vsock port the guest's agent listens on.
	GuestAgentPort uint32
}

func (c FirecrackerConfig) withDefaults() FirecrackerConfig {
	if c.VCPUs == 0 {
		c.VCPUs = 1
	}
	if c.MemSizeMB == 0 {
		c.MemSizeMB = 512
	}
	if c.BootArgs == "" {
		c.BootArgs = "console=ttyS0 reboot=k panic=1 pci=off"
	}
	if c.GuestAgentPort == 0 {
		c.GuestAgentPort = 52
	}
	return c
}

// Firecracker is a Runtime backed by a single Firecracker microVM, commands
// and file operations crossing the host/guest boundary over vsock to a
// guest agent running inside the rootfs image. It boots lazily on first
// use and stays up for the process lifetime.
type Firecracker struct {
	config  FirecrackerConfig
	workDir string

	mu      sync.Mutex
	machine *fc.Machine
	cmd     *exec.Cmd
	vsock   *vsockClient
	started bool
}

// NewFirecracker builds a Firecracker runtime. The microVM is not started
// until the first Execute/ReadFile/WriteFile/EditFile call.
func NewFirecracker(config FirecrackerConfig) *Firecracker {
	config = config.withDefaults()
	return &Firecracker{config: config}
}

func (f *Firecracker) ensureStarted(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}

	vmID := uuid.New().String()
	workDir := filepath.Join(os.TempDir(), "agent-firecracker", vmID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create firecracker work dir: %w", err)
	}

	socketPath := filepath.Join(workDir, "api.sock")
	vsockPath := filepath.Join(workDir, "vsock.sock")

	bin, err := exec.LookPath("firecracker")
	if err != nil {
		return fmt.Errorf("firecracker binary not found: %w", err)
	}

	machineCfg := fc.Config{
		SocketPath:      socketPath,
		LogPath:         filepath.Join(workDir, "vm.log"),
		LogLevel:        "Warning",
		KernelImagePath: f.config.KernelPath,
		KernelArgs:      f.config.BootArgs,
		Drives: []fcmodels.Drive{{
			DriveID:      fc.String("rootfs"),
			PathOnHost:   fc.String(f.config.RootFSPath),
			IsRootDevice: fc.Bool(true),
			IsReadOnly:   fc.Bool(false),
		}},
		MachineCfg: fcmodels.MachineConfiguration{
			VcpuCount:  fc.Int64(f.config.VCPUs),
			MemSizeMib: fc.Int64(f.config.MemSizeMB),
			Smt:        fc.Bool(false),
		},
		VsockDevices: []fc.VsockDevice{{
			Path: vsockPath,
			CID:  3,
		}},
	}

	cmd := fc.VMCommandBuilder{}.WithBin(bin).WithSocketPath(socketPath).Build(ctx)
	machine, err := fc.NewMachine(ctx, machineCfg, fc.WithProcessRunner(cmd))
	if err != nil {
		return fmt.Errorf("create firecracker machine: %w", err)
	}
	if err := machine.Start(ctx); err != nil {
		return fmt.Errorf("start firecracker machine: %w", err)
	}

	f.machine = machine
	f.cmd = cmd
	f.workDir = workDir
	f.vsock = newVsockClient(vsockPath, f.config.GuestAgentPort)
	f.started = true
	return nil
}

// Close stops the microVM and removes its scratch directory.
func (f *Firecracker) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return nil
	}
	var err error
	if f.vsock != nil {
		f.vsock.Close()
	}
	if f.machine != nil {
		err = f.machine.StopVMM()
	}
	os.RemoveAll(f.workDir)
	f.started = false
	return err
}

func (f *Firecracker) exec(ctx context.Context, command string) (*guestResponse, error) {
	if err := f.ensureStarted(ctx); err != nil {
		return nil, err
	}
	return f.vsock.Send(ctx, &guestRequest{
		Type:    requestTypeExecute,
		Code:    command,
		Language: "bash",
	})
}

func (f *Firecracker) Execute(ctx context.Context, command string) ExecuteResult {
	resp, err := f.exec(ctx, command)
	if err != nil {
		return ExecuteResult{Status: StatusError, Message: err.Error()}
	}
	out := truncate(resp.Stdout)
	errOut := truncate(resp.Stderr)
	if resp.ExitCode != 0 {
		return ExecuteResult{Status: StatusError, ReturnCode: resp.ExitCode, Stdout: out, Stderr: errOut}
	}
	return ExecuteResult{Status: StatusSuccess, Stdout: out, Stderr: errOut}
}

func (f *Firecracker) ReadFile(ctx context.Context, path string, startLine, limit int) ReadFileResult {
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	if startLine < 1 {
		startLine = 1
	}

	totalResp, err := f.exec(ctx, fmt.Sprintf("sed -n '$=' '%s'", path))
	if err != nil {
		return ReadFileResult{Status: StatusError, Message: err.Error()}
	}
	if totalResp.ExitCode != 0 {
		return ReadFileResult{Status: StatusError, Message: fmt.Sprintf("could not stat %s", path)}
	}
	total := parseLineCount(totalResp.Stdout)

	end := startLine + limit - 1
	contentResp, err := f.exec(ctx, fmt.Sprintf("sed -n '%d,%dp' '%s'", startLine, end, path))
	if err != nil {
		return ReadFileResult{Status: StatusError, Message: err.Error()}
	}
	if contentResp.ExitCode != 0 {
		return ReadFileResult{Status: StatusError, Message: fmt.Sprintf("could not read %s", path)}
	}

	return ReadFileResult{
		Status:        StatusSuccess,
		Content:       contentResp.Stdout,
		TotalLines:    total,
		StartLine:     startLine,
		ReturnedLines: len(splitLinesKeepEnds(contentResp.Stdout)),
	}
}

func (f *Firecracker) WriteFile(ctx context.Context, path, content string) WriteFileResult {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if resp, err := f.exec(ctx, fmt.Sprintf("mkdir -p \"$(dirname '%s')\"", path)); err != nil || resp.ExitCode != 0 {
			if err == nil {
				err = fmt.Errorf("mkdir -p failed for %s", dir)
			}
			return WriteFileResult{Status: StatusError, Message: err.Error()}
		}
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	resp, err := f.exec(ctx, fmt.Sprintf("echo '%s' | base64 -d > '%s'", encoded, path))
	if err != nil {
		return WriteFileResult{Status: StatusError, Message: err.Error()}
	}
	if resp.ExitCode != 0 {
		return WriteFileResult{Status: StatusError, Message: resp.Stderr}
	}
	return WriteFileResult{Status: StatusSuccess}
}

func (f *Firecracker) EditFile(ctx context.Context, path string, edits []Edit) EditFileResult {
	data, err := f.ReadFileInternal(ctx, path)
	if err != nil {
		return EditFileResult{Status: StatusError, Message: err.Error()}
	}
	updated, err := applyEdits(string(data), edits)
	if err != nil {
		return EditFileResult{Status: StatusError, Message: err.Error()}
	}
	if res := f.WriteFile(ctx, path, updated); res.Status != StatusSuccess {
		return EditFileResult{Status: StatusError, Message: res.Message}
	}
	return EditFileResult{Status: StatusSuccess}
}

func (f *Firecracker) ReadFileInternal(ctx context.Context, path string) ([]byte, error) {
	resp, err := f.exec(ctx, fmt.Sprintf("base64 '%s'", path))
	if err != nil {
		return nil, err
	}
	if resp.ExitCode != 0 {
		return nil, fmt.Errorf("read %s: %s", path, resp.Stderr)
	}
	decoded, err := base64.StdEncoding.DecodeString(stripWhitespace(resp.Stdout))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return decoded, nil
}

// --- guest agent wire protocol, adapted for a single execute request type ---

type requestType string

const requestTypeExecute requestType = "execute"

type guestRequest struct {
	ID       uint64      `json:"id"`
	Type     requestType `json:"type"`
	Code     string      `json:"code,omitempty"`
	Language string      `json:"language,omitempty"`
}

type guestResponse struct {
	ID       uint64 `json:"id"`
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

// vsockClient talks to the guest agent over the vsock Unix-socket proxy
// Firecracker exposes on the host.
type vsockClient struct {
	socketPath string
	port       uint32

	mu     sync.Mutex
	conn   net.Conn
	writer *bufio.Writer

	reqMu     sync.Mutex
	requestID uint64
}

func newVsockClient(socketPath string, port uint32) *vsockClient {
	return &vsockClient{socketPath: socketPath, port: port}
}

func (c *vsockClient) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial vsock socket: %w", err)
	}

	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], 3) // guest CID
	binary.LittleEndian.PutUint32(header[4:8], c.port)
	if _, err := conn.Write(header); err != nil {
		conn.Close()
		return fmt.Errorf("send vsock header: %w", err)
	}

	c.conn = conn
	c.writer = bufio.NewWriter(conn)
	return nil
}

// Send writes req length-prefixed and reads a single length-prefixed
// response, matching the guest agent's framing.
func (c *vsockClient) Send(ctx context.Context, req *guestRequest) (*guestResponse, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	c.reqMu.Lock()
	c.requestID++
	req.ID = c.requestID
	c.reqMu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal guest request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lengthBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBuf, uint32(len(data)))
	if _, err := c.writer.Write(lengthBuf); err != nil {
		return nil, fmt.Errorf("write request length: %w", err)
	}
	if _, err := c.writer.Write(data); err != nil {
		return nil, fmt.Errorf("write request body: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		return nil, fmt.Errorf("flush request: %w", err)
	}

	respLenBuf := make([]byte, 4)
	if _, err := io.ReadFull(c.conn, respLenBuf); err != nil {
		return nil, fmt.Errorf("read response length: %w", err)
	}
	respLen := binary.LittleEndian.Uint32(respLenBuf)
	if respLen > 10*1024*1024 {
		return nil, fmt.Errorf("guest response too large: %d bytes", respLen)
	}
	body := make([]byte, respLen)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var resp guestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode guest response: %w", err)
	}
	return &resp, nil
}

func (c *vsockClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
