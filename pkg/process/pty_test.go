package process

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func skipWithoutPTY(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" || os.Getenv("CI") == "true" {
		t.Skip("PTY tests require Unix environment")
	}
}

func TestPTYManager_StartAndWait(t *testing.T) {
	skipWithoutPTY(t)

	ptyMgr := NewPTYManager(discardLogger())

	if err := ptyMgr.Start("echo", []string{"hello world"}, os.Environ()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if ptyMgr.GetPTY() == nil {
		t.Fatal("PTY is nil")
	}

	if err := ptyMgr.Wait(); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if ptyMgr.ProcessState() == nil {
		t.Error("ProcessState is nil")
	}
}

// lockedBuffer is safe to write from the copy goroutine while the test reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPTYManager_CopyIO(t *testing.T) {
	skipWithoutPTY(t)

	ptyMgr := NewPTYManager(discardLogger())

	if err := ptyMgr.Start("sh", []string{"-c", "printf 'out\\033[?1004h'; sleep 0.2"}, os.Environ()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	output := &lockedBuffer{}
	var mu sync.Mutex
	var seen []byte
	hooks := IOHooks{
		OnOutput: func(data []byte) {
			mu.Lock()
			seen = append(seen, data...)
			mu.Unlock()
		},
		FilterOutput: func(data []byte) []byte {
			return bytes.ReplaceAll(data, []byte("\x1b[?1004h"), nil)
		},
	}

	done := make(chan error, 1)
	go func() {
		done <- ptyMgr.CopyIO(strings.NewReader(""), output, hooks)
	}()

	if err := ptyMgr.Wait(); err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("CopyIO() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("CopyIO did not complete in time")
	}

	if got := output.String(); !strings.Contains(got, "out") || strings.Contains(got, "\x1b[?1004h") {
		t.Errorf("output = %q, want filtered program output", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if !bytes.Contains(seen, []byte("\x1b[?1004h")) {
		t.Errorf("OnOutput saw %q, want unfiltered output", seen)
	}
}

func TestPTYManager_StartErrors(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr bool
	}{
		{name: "invalid command", command: "/nonexistent/command", wantErr: true},
		{name: "valid command", command: "true", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skipWithoutPTY(t)

			ptyMgr := NewPTYManager(discardLogger())
			err := ptyMgr.Start(tt.command, nil, os.Environ())

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			_ = ptyMgr.Wait()
		})
	}
}

func TestPTYManager_DoubleStart(t *testing.T) {
	skipWithoutPTY(t)

	ptyMgr := NewPTYManager(discardLogger())

	if err := ptyMgr.Start("sleep", []string{"1"}, os.Environ()); err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	err := ptyMgr.Start("echo", []string{"test"}, os.Environ())
	if err == nil {
		t.Error("expected error on second start")
	} else if !strings.Contains(err.Error(), "already started") {
		t.Errorf("unexpected error message: %v", err)
	}

	_ = ptyMgr.Process().Signal(syscall.SIGTERM)
	_ = ptyMgr.Wait()
}

func TestPTYManager_WaitWithoutStart(t *testing.T) {
	ptyMgr := NewPTYManager(discardLogger())

	err := ptyMgr.Wait()
	if err == nil || !strings.Contains(err.Error(), "not started") {
		t.Errorf("Wait() error = %v, want not started", err)
	}
}

func TestPTYManager_ProcessMethods(t *testing.T) {
	ptyMgr := NewPTYManager(nil)

	if ptyMgr.Process() != nil {
		t.Error("Process should be nil before start")
	}
	if ptyMgr.ProcessState() != nil {
		t.Error("ProcessState should be nil before start")
	}
	if ptyMgr.GetPTY() != nil {
		t.Error("PTY should be nil before start")
	}
	if err := ptyMgr.CopyIO(nil, io.Discard, IOHooks{}); err == nil {
		t.Error("CopyIO before start should fail")
	}
	if err := ptyMgr.Stop(); err != nil {
		t.Errorf("Stop() before start error = %v", err)
	}
}

// chunkReader returns its chunks one Read at a time, then err.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, r.err
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestPump(t *testing.T) {
	tests := []struct {
		name    string
		endErr  error
		wantErr bool
	}{
		{name: "eof", endErr: io.EOF},
		{name: "pty closed by exit", endErr: &os.PathError{Op: "read", Path: "/dev/ptmx", Err: syscall.EIO}},
		{name: "file closed", endErr: os.ErrClosed},
		{name: "other error", endErr: errors.New("boom"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &chunkReader{
				chunks: [][]byte{[]byte("ab"), []byte("xx"), []byte("cd")},
				err:    tt.endErr,
			}
			var dst bytes.Buffer
			var observed []string

			err := pump(&dst, src,
				func(data []byte) { observed = append(observed, string(data)) },
				func(data []byte) []byte { return bytes.ReplaceAll(data, []byte("xx"), nil) },
			)

			if (err != nil) != tt.wantErr {
				t.Fatalf("pump() error = %v, wantErr %v", err, tt.wantErr)
			}
			if dst.String() != "abcd" {
				t.Errorf("dst = %q, want %q", dst.String(), "abcd")
			}
			if strings.Join(observed, ",") != "ab,xx,cd" {
				t.Errorf("observed = %v, want unfiltered chunks", observed)
			}
		})
	}
}
