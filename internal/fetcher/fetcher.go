// Package fetcher downloads HUD, FRED, and Census source files over HTTP
// and FTP and parses the CSV, XLSX, and ZIP formats they ship in.
package fetcher

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// Fetcher retrieves a remote source file. HTTPFetcher and FTPFetcher both
// satisfy it, so datasets stay agnostic about transport.
type Fetcher interface {
	// Download returns the remote body as a stream. The caller closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile saves the remote body to path and reports bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// saveTo drains r into a new file at path.
func saveTo(r io.Reader, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: create %s", path)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, eris.Wrapf(err, "fetcher: write %s", path)
	}
	return n, nil
}
