package source

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// YTDLPSource streams the best audio format of locator through yt-dlp's
// stdout. The locator may be a URL or a "ytsearch1:" expression.
type YTDLPSource struct {
	path    string
	locator string
	stderr  io.Writer

	mu      sync.Mutex
	cmd     *exec.Cmd
	stopped bool
}

func NewYTDLPSource(path, locator string, stderr io.Writer) *YTDLPSource {
	if path == "" {
		path = "yt-dlp"
	}
	return &YTDLPSource{
		path:    path,
		locator: locator,
		stderr:  stderr,
	}
}

func (y *YTDLPSource) Args() []string {
	return []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"--quiet",
		"-o", "-",
		y.locator,
	}
}

func (y *YTDLPSource) Open() (io.ReadCloser, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	if y.stopped {
		return nil, errors.New("yt-dlp source stopped")
	}

	y.cmd = exec.Command(y.path, y.Args()...)
	y.cmd.Stderr = y.stderr

	stdout, err := y.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp stdout pipe: %w", err)
	}
	if err := y.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start yt-dlp: %w", err)
	}

	return &cmdReader{ReadCloser: stdout, cmd: y.cmd}, nil
}

func (y *YTDLPSource) Stop() error {
	y.mu.Lock()
	defer y.mu.Unlock()

	y.stopped = true
	if y.cmd != nil && y.cmd.Process != nil {
		return y.cmd.Process.Kill()
	}
	return nil
}

// cmdReader reaps the process once its stdout is closed.
type cmdReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (c *cmdReader) Close() error {
	err := c.ReadCloser.Close()
	c.cmd.Wait()
	return err
}
