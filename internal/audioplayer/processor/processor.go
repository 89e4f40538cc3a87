package processor

import "io"

// Processor converts an encoded audio stream into raw PCM.
type Processor interface {
	Process(r io.Reader) (io.ReadCloser, error)
	Stop() error
}
