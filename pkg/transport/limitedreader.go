package transport

import (
	"errors"
	"fmt"
	"io"
)

// MaxBodySize bounds the JSON bodies read from addons and the Stremio API.
const MaxBodySize = 4 << 20

var ErrBodyTooLarge = errors.New("body exceeds size limit")

// LimitBody returns a Reader that reads from r but fails with
// ErrBodyTooLarge once more than n bytes are requested past the limit.
// Unlike io.LimitReader, truncation is reported instead of looking like EOF.
func LimitBody(r io.Reader, n int64) io.Reader {
	return &limitedReader{r: r, n: n}
}

type limitedReader struct {
	r io.Reader
	n int64 // bytes remaining
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		// Probe one byte so a body of exactly n bytes still ends in EOF.
		var probe [1]byte
		if n, err := l.r.Read(probe[:]); n == 0 {
			return 0, err
		}
		return 0, ErrBodyTooLarge
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	return n, err
}

// ReadBody reads at most MaxBodySize bytes from r.
func ReadBody(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(LimitBody(r, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to io.ReadAll: %w", err)
	}
	return b, nil
}
