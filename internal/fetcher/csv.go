package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions controls how a source CSV is streamed.
type CSVOptions struct {
	Comma  rune            // field delimiter, ',' when zero
	Header chan<- []string // receives the first row, which is then skipped
	Trim   bool            // strip surrounding whitespace from every field
}

// StreamCSV parses r row by row, delivering records on the returned
// channel. The error channel yields at most one error; both channels
// close when the input is exhausted.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		cr := csv.NewReader(r)
		if opts.Comma != 0 {
			cr.Comma = opts.Comma
		}
		cr.LazyQuotes = true
		// Tax and rent feeds pad trailing columns inconsistently.
		cr.FieldsPerRecord = -1

		if opts.Header != nil {
			rec, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read header")
				return
			}
			if opts.Trim {
				trimFields(rec)
			}
			select {
			case opts.Header <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: cancelled")
				return
			}
		}

		for {
			rec, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			if opts.Trim {
				trimFields(rec)
			}

			select {
			case rowCh <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

func trimFields(rec []string) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
}
