package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// ErrNameAlreadySent is returned when the one-shot handshake name is sent twice on
// the same process handle.
var ErrNameAlreadySent = errors.New("handshake name already sent")

// ExitStatus is the exit status of the server process.
type ExitStatus struct {
	// Code is the process exit code, or -1 if the process was killed by a signal.
	Code int
}

func (s ExitStatus) Success() bool { return s.Code == 0 }

type waitResult struct {
	code int
	err  error
}

// ServerProc is a handle to a spawned server process. It owns the write end of the
// child's stdin, which is the only medium for delivering the handshake name.
type ServerProc struct {
	log    *zap.SugaredLogger
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	cancel context.CancelFunc

	resultCh chan waitResult
	exited   chan struct{}

	nameMu   sync.Mutex
	nameSent bool
}

// Spawn launches a server-role instance of the current executable and starts
// supervising it. The child gets the role marker as its entire environment, a piped
// stdin, and the parent's stdout and stderr. Spawn either returns a fully started
// process or an error with no process left behind.
func Spawn(opts ...Option) (*ServerProc, error) {
	o := buildOptions(opts)
	log := o.logger.Sugar().Named("server_proc")

	path := o.cmdPath
	args := o.cmdArgs
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating current executable: %w", err)
		}
		path = exe
	}

	cmd := exec.Command(path, args...)
	// The server instance starts with a clean slate: no inherited environment and no
	// arguments, just the role marker.
	cmd.Env = []string{RoleEnvVar + "=" + roleServerValue}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("piping stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting server process: %w", err)
	}
	log.Debugf("spawned server process %d", cmd.Process.Pid)

	ctx, cancel := context.WithCancel(context.Background())
	p := &ServerProc{
		log:      log,
		cmd:      cmd,
		stdin:    stdin,
		cancel:   cancel,
		resultCh: make(chan waitResult, 1),
		exited:   make(chan struct{}),
	}

	// Supervise the child: wait for it to exit and deliver its status.
	go func() {
		err := cmd.Wait()
		code := 0
		var resultErr error
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			} else {
				code = -1
				resultErr = err
			}
		}
		close(p.exited)
		p.resultCh <- waitResult{code: code, err: resultErr}
	}()

	// Kill the child if the handle is aborted before it exits.
	go func() {
		select {
		case <-ctx.Done():
			log.Debugf("killing server process %d", cmd.Process.Pid)
			cmd.Process.Kill()
		case <-p.exited:
		}
	}()

	return p, nil
}

// SendOneshotName writes the handshake name followed by a newline to the server
// process's stdin. Either the whole line is written or an error is returned; a
// partial write is never reported as success. The name is a use-once value: a second
// call returns ErrNameAlreadySent.
func (p *ServerProc) SendOneshotName(name string) error {
	p.nameMu.Lock()
	defer p.nameMu.Unlock()

	if p.nameSent {
		return ErrNameAlreadySent
	}
	if _, err := io.WriteString(p.stdin, name+"\n"); err != nil {
		return fmt.Errorf("writing handshake name: %w", err)
	}
	p.nameSent = true
	return nil
}

// Wait blocks until the server process exits or ctx is done. A Wait error means the
// OS-level wait itself failed and the child's lifecycle can no longer be trusted.
func (p *ServerProc) Wait(ctx context.Context) (ExitStatus, error) {
	select {
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	case res := <-p.resultCh:
		if res.err != nil {
			return ExitStatus{}, fmt.Errorf("waiting on server process: %w", res.err)
		}
		return ExitStatus{Code: res.code}, nil
	}
}

// Abort kills the server process without waiting for it. It returns promptly whether
// or not the child has already exited.
func (p *ServerProc) Abort() {
	p.cancel()
}
