package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Open returns a reader over the records of a local or remote dump. Remote
// sources are downloaded to a temporary file first. The whole document is
// validated before the reader is returned, so a malformed dump fails here
// and never yields a partial sequence of records.
//
// The reader stops with ctx unless opts carries its own context.
//
// The returned reader must be closed, which also removes the temporary
// download.
func Open[T any](ctx context.Context, source, tag string, parse ParseFunc[T], opts Options) (*Reader[T], error) {
	return open(ctx, defaultClient(), source, tag, parse, opts)
}

func open[T any](ctx context.Context, client *resty.Client, source, tag string, parse ParseFunc[T], opts Options) (*Reader[T], error) {
	ctx, span := tracer.Start(ctx, "dump:Open")
	defer span.End()
	if opts.Context == nil {
		opts.Context = ctx
	}

	path := source
	temporary := false
	if isURL(source) {
		path = filepath.Join(os.TempDir(), fmt.Sprintf("nstools-dump-%s", uuid.NewString()))
		_, err := downloadFile(ctx, client, source, path)
		if err != nil {
			return nil, err
		}
		temporary = true
	}
	cleanup := func() {
		if temporary {
			os.Remove(path)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		cleanup()
		return nil, err
	}
	fail := func(err error) (*Reader[T], error) {
		f.Close()
		cleanup()
		return nil, err
	}

	err = validate(ctx, f, opts.Lenient)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", source, err))
	}
	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return fail(err)
	}

	reader, err := NewReader(f, tag, parse, opts)
	if err != nil {
		return fail(err)
	}
	reader.closer = append([]io.Closer{fileCloser{file: f, remove: temporary}}, reader.closer...)
	return reader, nil
}

// fileCloser closes a dump file and removes it when it was a temporary
// download.
type fileCloser struct {
	file   *os.File
	remove bool
}

func (c fileCloser) Close() error {
	err := c.file.Close()
	if c.remove {
		err = errors.Join(err, os.Remove(c.file.Name()))
	}
	return err
}
