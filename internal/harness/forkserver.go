package harness

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/mini-lop/minilop/internal/errs"
)

// ctlFD and stFD are the AFL forkserver convention (spec.md §6): the
// target reads fork requests on ctlFD and writes PID/status on stFD.
// Go's exec.Cmd can only hand a child sequential descriptors starting
// at fd 3 via ExtraFiles, so the child is launched through a small bash
// shim (POSIX sh only guarantees single-digit fd redirections) that dup2s fd 3/4 onto 198/199 before exec-ing the real target —
// the same fd shuffle AFL's own fork server setup performs with dup2,
// just expressed from the outside since Go won't let us pick arbitrary
// child fd numbers directly.
const (
	ctlFD = 198
	stFD  = 199
)

const forkServerShim = `exec 198<&3 199>&4 3<&- 4<&-; exec "$@"`

// Config configures a Harness.
type Config struct {
	Binary       string
	Args         []string
	CurrentInput string        // path the staged input is read from (target's stdin)
	Timeout      time.Duration // default 1000ms per spec.md §4.1
}

// Harness owns one forkserver child process and the shared trace
// bitmap. It is not safe for concurrent use: spec.md §5 requires
// exactly one execution in flight at a time, and Harness has no
// internal locking because the main loop is its only caller.
type Harness struct {
	cfg    Config
	Bitmap *TraceBitmap

	cmd  *exec.Cmd
	ctlW *os.File
	stR  *os.File
}

// New spawns the forkserver once and completes the hello handshake.
// Any failure here is fatal per spec.md §7 (InitError).
func New(cfg Config) (*Harness, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	bitmap, err := NewTraceBitmap()
	if err != nil {
		return nil, errs.NewInit("allocate trace bitmap", err)
	}
	h := &Harness{cfg: cfg, Bitmap: bitmap}
	if err := h.spawn(); err != nil {
		bitmap.Close()
		return nil, errs.NewInit("spawn forkserver", err)
	}
	if err := h.hello(); err != nil {
		h.killChild()
		bitmap.Close()
		return nil, errs.NewInit("forkserver hello handshake", err)
	}
	return h, nil
}

// spawn launches the target binary attached to the control channel and
// the shared-memory bitmap, per spec.md §4.1 and §6.
func (h *Harness) spawn() error {
	ctlR, ctlW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("ctl pipe: %w", err)
	}
	stR, stW, err := os.Pipe()
	if err != nil {
		ctlR.Close()
		ctlW.Close()
		return fmt.Errorf("st pipe: %w", err)
	}

	args := append([]string{forkServerShim, h.cfg.Binary, h.cfg.Binary}, h.cfg.Args...)
	cmd := exec.Command("/bin/bash", append([]string{"-c"}, args...)...)
	cmd.ExtraFiles = []*os.File{ctlR, stW}
	cmd.Env = append(os.Environ(), fmt.Sprintf("__AFL_SHM_ID=%d", h.Bitmap.ShmID()))
	cmd.Stderr = os.Stderr

	if h.cfg.CurrentInput != "" {
		in, err := os.Open(h.cfg.CurrentInput)
		if err == nil {
			cmd.Stdin = in
		}
	}

	if err := cmd.Start(); err != nil {
		ctlR.Close()
		ctlW.Close()
		stR.Close()
		stW.Close()
		return fmt.Errorf("start target: %w", err)
	}

	// The child has its own copies of ctlR/stW now; the parent only
	// needs the write end of ctl and the read end of st.
	ctlR.Close()
	stW.Close()

	h.cmd = cmd
	h.ctlW = ctlW
	h.stR = stR
	return nil
}

// hello reads the forkserver's 4-byte startup acknowledgement.
func (h *Harness) hello() error {
	var buf [4]byte
	if _, err := io.ReadFull(h.stR, buf[:]); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	return nil
}

// RunOnce executes the target once against the bytes currently staged
// at cfg.CurrentInput and returns the wait-style status code and the
// elapsed time, per spec.md §4.1.
//
// A channel I/O failure returns *errs.HarnessError; the caller (the
// main loop) is responsible for respawning once and retrying, per
// spec.md §7.
func (h *Harness) RunOnce() (status int, elapsed time.Duration, err error) {
	h.Bitmap.Clear()

	start := time.Now()

	var req [4]byte
	if _, err := h.ctlW.Write(req[:]); err != nil {
		return 0, time.Since(start), errs.NewHarness("write fork request", err)
	}

	var pidBuf [4]byte
	if _, err := io.ReadFull(h.stR, pidBuf[:]); err != nil {
		return 0, time.Since(start), errs.NewHarness("read child pid", err)
	}
	pid := int(binary.NativeEndian.Uint32(pidBuf[:]))

	statusCh := make(chan uint32, 1)
	errCh := make(chan error, 1)
	go func() {
		var statusBuf [4]byte
		if _, err := io.ReadFull(h.stR, statusBuf[:]); err != nil {
			errCh <- err
			return
		}
		statusCh <- binary.NativeEndian.Uint32(statusBuf[:])
	}()

	select {
	case s := <-statusCh:
		return int(s), time.Since(start), nil
	case err := <-errCh:
		return 0, time.Since(start), errs.NewHarness("read status", err)
	case <-time.After(h.cfg.Timeout):
		if pid > 0 {
			syscall.Kill(pid, syscall.SIGKILL)
		}
		// Wait for the status the forkserver writes once it reaps the
		// killed child, so the next round's read isn't desynchronised;
		// ignore its value, ours is synthetic.
		select {
		case <-statusCh:
		case <-errCh:
		}
		return 9, time.Since(start), nil
	}
}

// Respawn kills the current child, tears down the control channel, and
// starts a fresh forkserver. Called once after a HarnessError; a
// second consecutive failure must be treated as fatal by the caller.
func (h *Harness) Respawn() error {
	h.killChild()
	if h.ctlW != nil {
		h.ctlW.Close()
	}
	if h.stR != nil {
		h.stR.Close()
	}
	if err := h.spawn(); err != nil {
		return fmt.Errorf("respawn: %w", err)
	}
	return h.hello()
}

func (h *Harness) killChild() {
	if h.cmd != nil && h.cmd.Process != nil {
		h.cmd.Process.Kill()
		h.cmd.Wait()
	}
}

// Close releases every resource acquired by New/spawn, on every exit
// path (spec.md §5, "resource discipline").
func (h *Harness) Close() error {
	h.killChild()
	if h.ctlW != nil {
		h.ctlW.Close()
	}
	if h.stR != nil {
		h.stR.Close()
	}
	return h.Bitmap.Close()
}
