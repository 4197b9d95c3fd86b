package fsmanager

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/optizone/rose/cache"
)

// diskStream reads an object straight from disk, optionally teeing every
// byte it hands back into a buffer. The buffer is only committed to the
// cache on Close, and only if the stream was read to a clean EOF starting
// from position zero: an early Close (client disconnect, handler error)
// must never poison the cache with a partial object.
type diskStream struct {
	f   *os.File
	r   *bufio.Reader
	tee bool
	buf *bytes.Buffer

	produced     int64
	expectedSize int64
	reachedEOF   bool

	id    uuid.UUID
	ext   string
	cache *cache.Cache
}

func newDiskStream(f *os.File, size int64, tee bool, id uuid.UUID, c *cache.Cache) *diskStream {
	s := &diskStream{
		f:            f,
		r:            bufio.NewReaderSize(f, 32*1024),
		tee:          tee,
		expectedSize: size,
		id:           id,
		cache:        c,
	}
	if tee {
		s.buf = bytes.NewBuffer(make([]byte, 0, size))
	}
	return s
}

func (s *diskStream) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 {
		s.produced += int64(n)
		if s.tee {
			s.buf.Write(p[:n])
		}
	}
	if err == io.EOF {
		s.reachedEOF = true
	}
	return n, err
}

// Close releases the underlying file and, if the stream was fully and
// cleanly drained, commits the teed bytes to the cache.
func (s *diskStream) Close() error {
	err := s.f.Close()
	if s.tee && s.reachedEOF && s.produced == s.expectedSize && int64(s.buf.Len()) == s.expectedSize {
		s.cache.Insert(s.id, s.buf.Bytes())
	}
	return err
}
