package spotstats

import (
	"compress/gzip"
	"io"
	"os"

	"github.com/carbocation/pfx"
)

type gzipFile struct {
	gz *gzip.Reader
	f  *os.File
}

func (g gzipFile) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

// Close closes the gzip stream and then the underlying file, reporting the
// first error encountered.
func (g gzipFile) Close() error {
	err := g.gz.Close()
	if ferr := g.f.Close(); err == nil {
		err = ferr
	}

	return err
}

// MaybeOpenGzip opens the file at path. If the contents are gzip-compressed
// (sniffed from the magic bytes, not the filename), the returned ReadCloser
// decompresses transparently and its Close tears down both layers.
func MaybeOpenGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	magic := make([]byte, 2)
	if _, err := io.ReadFull(f, magic); err != nil {
		// Zero- or one-byte files can't be gzipped; hand back the plain
		// file positioned at the start.
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			f.Close()
			return nil, pfx.Err(serr)
		}
		return f, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, pfx.Err(err)
	}

	if magic[0] != 0x1f || magic[1] != 0x8b {
		return f, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, pfx.Err(err)
	}

	return gzipFile{gz: gz, f: f}, nil
}
