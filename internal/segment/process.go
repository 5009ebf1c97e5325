package segment

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// trackQueue buffers payloads for one pipe. offer never blocks.
type trackQueue struct {
	ch      chan []byte
	dropped atomic.Int64
	once    sync.Once
}

func newTrackQueue(depth int) *trackQueue {
	return &trackQueue{ch: make(chan []byte, depth)}
}

func (q *trackQueue) offer(payload []byte) bool {
	select {
	case q.ch <- payload:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

func (q *trackQueue) close() {
	q.once.Do(func() { close(q.ch) })
}

// pump copies queued payloads into dst until the queue closes. After a write
// error the remaining payloads are discarded.
func (q *trackQueue) pump(dst io.WriteCloser) error {
	var writeErr error
	for payload := range q.ch {
		if writeErr != nil {
			continue
		}
		if _, err := dst.Write(payload); err != nil {
			writeErr = err
		}
	}
	if err := dst.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	return writeErr
}

// Starter launches the muxer with the two track read ends as fd 3 and fd 4.
// It takes ownership of the read ends and returns a function that waits for
// the muxer to exit.
type Starter func(binary string, args []string, video, audio *os.File) (wait func() error, err error)

var startMuxer Starter = execStarter

// SetStarterForTests overrides the muxer launcher during tests.
func SetStarterForTests(fn Starter) func() {
	previous := startMuxer
	startMuxer = fn
	return func() {
		startMuxer = previous
	}
}

type process struct {
	waitFn func() error
	pumps  sync.WaitGroup
	errMu  sync.Mutex
	errs   []error
}

func startProcess(binary string, args []string, video, audio *trackQueue) (*process, error) {
	vr, vw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("video pipe: %w", err)
	}
	ar, aw, err := os.Pipe()
	if err != nil {
		vr.Close()
		vw.Close()
		return nil, fmt.Errorf("audio pipe: %w", err)
	}
	waitFn, err := startMuxer(binary, args, vr, ar)
	if err != nil {
		vw.Close()
		aw.Close()
		return nil, err
	}

	p := &process{waitFn: waitFn}
	for _, pair := range []struct {
		q   *trackQueue
		dst *os.File
	}{{video, vw}, {audio, aw}} {
		p.pumps.Add(1)
		go func(q *trackQueue, dst *os.File) {
			defer p.pumps.Done()
			if err := q.pump(dst); err != nil {
				p.errMu.Lock()
				p.errs = append(p.errs, err)
				p.errMu.Unlock()
			}
		}(pair.q, pair.dst)
	}
	return p, nil
}

// wait blocks until both pumps drained and the muxer exited.
func (p *process) wait() error {
	p.pumps.Wait()
	if err := p.waitFn(); err != nil {
		return err
	}
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if len(p.errs) > 0 {
		return fmt.Errorf("feed muxer: %w", p.errs[0])
	}
	return nil
}

func execStarter(binary string, args []string, video, audio *os.File) (func() error, error) {
	cmd := exec.Command(binary, args...) //nolint:gosec
	cmd.ExtraFiles = []*os.File{video, audio}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Start()
	video.Close()
	audio.Close()
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}
	return func() error {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("%s: %w: %s", binary, err, strings.TrimSpace(stderr.String()))
		}
		return nil
	}, nil
}
