package source

import "io"

// Source produces the encoded audio of one track.
type Source interface {
	// Open starts the source and returns its audio stream.
	Open() (io.ReadCloser, error)
	// Stop aborts the source. It may be called before or during Open and
	// must not block on the stream.
	Stop() error
}
