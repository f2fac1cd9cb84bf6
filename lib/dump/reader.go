package dump

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"nstools/lib/nsapi"

	"github.com/klauspost/compress/gzip"
)

// ParseFunc converts a record subtree into a typed record.
type ParseFunc[T any] func(nsapi.Node) (T, error)

type Options struct {
	// Context stops iteration once it is done, Err then returns its error.
	// It is checked every few thousand tokens.
	Context context.Context
	// OnSkip is called for every record that parse rejected. It defaults
	// to a warning log.
	OnSkip func(err *RecordError)
	// Lenient relaxes the xml parser for dumps known to carry undeclared
	// entities or unclosed tags.
	Lenient bool
}

// RecordError describes a well formed record that could not be parsed.
type RecordError struct {
	Tag string
	// Index is the 1-based position of the record among records with the
	// same tag.
	Index  int
	Offset int64
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s record %d (offset %d): %s", e.Tag, e.Index, e.Offset, e.Err.Error())
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

var errTrailingContent = errors.New("content after root element")
var errNoRoot = errors.New("document has no root element")

func logSkip(err *RecordError) {
	slog.Warn("skipping malformed record", "tag", err.Tag, "index", err.Index, "err", err.Err)
}

// decompress returns r, transparently decompressed when it starts with the
// gzip magic bytes.
func decompress(r io.Reader) (io.Reader, io.Closer, error) {
	buffered := bufio.NewReaderSize(r, 64*1024)
	magic, err := buffered.Peek(2)
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return gz, gz, nil
	}
	return buffered, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newDecoder(r io.Reader, lenient bool) *xml.Decoder {
	dec := nsapi.NewDecoder(r)
	if lenient {
		dec.Strict = false
		dec.AutoClose = xml.HTMLAutoClose
		dec.Entity = xml.HTMLEntity
	}
	return dec
}

// Reader iterates the records of a dump one at a time. Only the subtree of
// the current record is held in memory.
//
//	for reader.Next() {
//		nation := reader.Record()
//	}
//	if err := reader.Err(); err != nil {
//		...
//	}
type Reader[T any] struct {
	dec    *xml.Decoder
	tag    string
	parse  ParseFunc[T]
	opts   Options
	closer []io.Closer

	record  T
	err     error
	done    bool
	depth   int
	sawRoot bool
	index   int
	skipped int
	tokens  int
}

// NewReader reads records whose local name equals tag, at any depth below
// the root element. r may be gzip compressed.
func NewReader[T any](r io.Reader, tag string, parse ParseFunc[T], opts Options) (*Reader[T], error) {
	plain, gz, err := decompress(r)
	if err != nil {
		return nil, err
	}
	if opts.OnSkip == nil {
		opts.OnSkip = logSkip
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return &Reader[T]{
		dec:    newDecoder(plain, opts.Lenient),
		tag:    tag,
		parse:  parse,
		opts:   opts,
		closer: []io.Closer{gz},
	}, nil
}

// Next advances to the next record, it returns false at the end of the
// document or on the first structural error.
func (r *Reader[T]) Next() bool {
	if r.done {
		return false
	}
	var zero T
	r.record = zero

	for {
		if r.tokens%ctxCheckInterval == 0 {
			err := r.opts.Context.Err()
			if err != nil {
				r.fail(err)
				return false
			}
		}
		r.tokens++

		tok, err := r.dec.Token()
		if err == io.EOF {
			if !r.sawRoot {
				r.fail(errNoRoot)
				return false
			}
			r.done = true
			return false
		}
		if err != nil {
			r.fail(err)
			return false
		}

		switch tok := tok.(type) {
		case xml.StartElement:
			if r.sawRoot && r.depth == 0 {
				r.fail(errTrailingContent)
				return false
			}
			if r.depth == 0 || tok.Name.Local != r.tag {
				r.sawRoot = true
				r.depth++
				continue
			}

			offset := r.dec.InputOffset()
			var node nsapi.Node
			err := r.dec.DecodeElement(&node, &tok)
			if err != nil {
				r.fail(err)
				return false
			}
			r.index++

			record, err := r.parse(node)
			if err != nil {
				r.skipped++
				r.opts.OnSkip(&RecordError{Tag: r.tag, Index: r.index, Offset: offset, Err: err})
				continue
			}
			r.record = record
			return true
		case xml.EndElement:
			r.depth--
		case xml.CharData:
			if r.sawRoot && r.depth == 0 && len(bytes.TrimSpace(tok)) > 0 {
				r.fail(errTrailingContent)
				return false
			}
		}
	}
}

func (r *Reader[T]) fail(err error) {
	r.err = fmt.Errorf("read %s dump: %w", r.tag, err)
	r.done = true
}

// Record returns the record read by the last successful Next.
func (r *Reader[T]) Record() T {
	return r.record
}

func (r *Reader[T]) Err() error {
	return r.err
}

// Skipped returns how many records were rejected by parse so far.
func (r *Reader[T]) Skipped() int {
	return r.skipped
}

// Read returns how many records were decoded so far, skipped included.
func (r *Reader[T]) Read() int {
	return r.index
}

// Close releases the underlying resources. It does not close the reader
// passed to NewReader.
func (r *Reader[T]) Close() error {
	r.done = true
	var errs []error
	for i := len(r.closer) - 1; i >= 0; i-- {
		err := r.closer[i].Close()
		if err != nil {
			errs = append(errs, err)
		}
	}
	r.closer = nil
	return errors.Join(errs...)
}

// Collect reads every remaining record into a slice.
func Collect[T any](r *Reader[T]) ([]T, error) {
	var out []T
	for r.Next() {
		out = append(out, r.Record())
	}
	return out, r.Err()
}
