package processor

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

const (
	SampleRate = 48000
	Channels   = 2
)

// FfmpegProcessor decodes anything ffmpeg understands into signed 16-bit
// little-endian stereo PCM at 48kHz, the format Discord voice expects.
type FfmpegProcessor struct {
	path   string
	volume float64
	stderr io.Writer

	mu      sync.Mutex
	cmd     *exec.Cmd
	stopped bool
}

func NewFfmpegProcessor(path string, volume float64, stderr io.Writer) *FfmpegProcessor {
	if path == "" {
		path = "ffmpeg"
	}
	return &FfmpegProcessor{
		path:   path,
		volume: volume,
		stderr: stderr,
	}
}

func (p *FfmpegProcessor) Args() []string {
	return []string{
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-af", "volume=" + strconv.FormatFloat(p.volume, 'f', -1, 64),
		"-threads", "2",
		"-loglevel", "warning",
		"pipe:1",
	}
}

func (p *FfmpegProcessor) Process(r io.Reader) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil, fmt.Errorf("ffmpeg processor stopped")
	}

	p.cmd = exec.Command(p.path, p.Args()...)
	p.cmd.Stdin = r
	p.cmd.Stderr = p.stderr

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &cmdReader{ReadCloser: stdout, cmd: p.cmd}, nil
}

func (p *FfmpegProcessor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

type cmdReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (c *cmdReader) Close() error {
	err := c.ReadCloser.Close()
	c.cmd.Wait()
	return err
}
