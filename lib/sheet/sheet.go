// Package sheet reads tab separated lists, such as published spreadsheets,
// from a file or a url.
package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"nstools/lib/restyutil"
	"nstools/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

var tracer = telemetry.Tracer("nstools.lib.sheet")

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

// IsURL reports whether a location is fetched over http.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Reader fetches sheets, files are read directly.
type Reader struct {
	http *resty.Client
}

func NewReader(userAgent string) *Reader {
	client := resty.New()
	client.SetHeader("User-Agent", userAgent)
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)
	return &Reader{http: client}
}

// Read returns the raw contents of a location.
func (r *Reader) Read(ctx context.Context, location string) ([]byte, error) {
	if !IsURL(location) {
		return os.ReadFile(location)
	}

	ctx, span := tracer.Start(ctx, "Read")
	defer span.End()

	res, err := r.http.R().SetContext(ctx).Get(location)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch %s: server responded with %s", location, res.Status())
	}
	return res.Body(), nil
}

// Rows reads a location as tab separated rows.
func (r *Reader) Rows(ctx context.Context, location string) ([][]string, error) {
	body, err := r.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	return ParseRows(bytes.NewReader(body))
}

// ParseRows splits tab separated text into rows. Rows may have any number
// of fields, blank rows are dropped and fields are trimmed.
func ParseRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var out [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}
		out = append(out, row)
	}
}

// Field returns the i-th field of a row or the empty string.
func Field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
