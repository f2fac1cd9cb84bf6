package dump

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"nstools/lib/nsapi"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func nationRecord(i int) string {
	return fmt.Sprintf(
		`<NATION><NAME>Nation %d</NAME><UNSTATUS>%s</UNSTATUS><ENDORSEMENTS>a,b</ENDORSEMENTS><POPULATION>%d</POPULATION><REGION>Region %d</REGION></NATION>`,
		i, []string{"WA Member", "Non-member"}[i%2], i*1000, i%7,
	)
}

func nationsDoc(n int) string {
	var out strings.Builder
	out.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<NATIONS api_version=\"12\">\n")
	for i := 0; i < n; i++ {
		out.WriteString(nationRecord(i))
		out.WriteString("\n")
	}
	out.WriteString("</NATIONS>\n")
	return out.String()
}

func gzipped(t testing.TB, doc string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// parses the whole document at once, the reference the streaming reader
// is compared against
func parseWhole(t testing.TB, doc string) []nsapi.NationStandard {
	t.Helper()
	var root struct {
		Nations []nsapi.Node `xml:"NATION"`
	}
	require.NoError(t, xml.Unmarshal([]byte(doc), &root))

	var out []nsapi.NationStandard
	for _, n := range root.Nations {
		nation, err := nsapi.ParseNationStandard(n)
		require.NoError(t, err)
		out = append(out, nation)
	}
	return out
}

func TestReaderMatchesWholeParse(t *testing.T) {
	for _, count := range []int{0, 1, 17, 500} {
		doc := nationsDoc(count)
		expected := parseWhole(t, doc)

		for name, input := range map[string][]byte{
			"plain": []byte(doc),
			"gzip":  gzipped(t, doc),
		} {
			t.Run(fmt.Sprintf("%s/%d", name, count), func(t *testing.T) {
				reader, err := NewReader(bytes.NewReader(input), "NATION", nsapi.ParseNationStandard, Options{})
				require.NoError(t, err)
				defer reader.Close()

				records, err := Collect(reader)
				require.NoError(t, err)
				diff := cmp.Diff(expected, records)
				if diff != "" {
					t.Fatal(diff)
				}
				require.Equal(t, count, reader.Read())
				require.Zero(t, reader.Skipped())
			})
		}
	}
}

func TestReaderNestedRecords(t *testing.T) {
	doc := `<WORLD><GROUP><NATION><NAME>a</NAME></NATION></GROUP><NATION><NAME>b</NAME></NATION><OTHER><NAME>c</NAME></OTHER></WORLD>`
	reader, err := NewReader(strings.NewReader(doc), "NATION", nsapi.ParseNationStandard, Options{})
	require.NoError(t, err)

	records, err := Collect(reader)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "a", records[0].Name)
	require.Equal(t, "b", records[1].Name)
}

func TestReaderStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader, err := NewReader(strings.NewReader(nationsDoc(3)), "NATION", nsapi.ParseNationStandard, Options{Context: ctx})
	require.NoError(t, err)
	require.False(t, reader.Next())
	require.ErrorIs(t, reader.Err(), context.Canceled)

	const total = 20000
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	reader, err = NewReader(strings.NewReader(nationsDoc(total)), "NATION", nsapi.ParseNationStandard, Options{Context: ctx})
	require.NoError(t, err)
	for range 10 {
		require.True(t, reader.Next())
	}
	cancel()
	for reader.Next() {
	}
	require.ErrorIs(t, reader.Err(), context.Canceled)
	require.Less(t, reader.Read(), total)
}

func TestReaderSkipsUnparsableRecords(t *testing.T) {
	doc := `<NATIONS>` +
		nationRecord(1) +
		`<NATION><NAME>Broken</NAME><POPULATION>many</POPULATION></NATION>` +
		nationRecord(2) +
		`</NATIONS>`

	var skipped []*RecordError
	reader, err := NewReader(strings.NewReader(doc), "NATION", nsapi.ParseNationStandard, Options{
		OnSkip: func(err *RecordError) {
			skipped = append(skipped, err)
		},
	})
	require.NoError(t, err)

	records, err := Collect(reader)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Nation 1", records[0].Name)
	require.Equal(t, "Nation 2", records[1].Name)

	require.Equal(t, 1, reader.Skipped())
	require.Len(t, skipped, 1)
	require.Equal(t, 2, skipped[0].Index)

	var parseErr *nsapi.ParseError
	require.True(t, errors.As(skipped[0], &parseErr))
	require.Equal(t, "POPULATION", parseErr.Field)
}

func TestReaderStructuralErrors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{name: "truncated", doc: `<NATIONS>` + nationRecord(1) + `<NATION><NAME>cut`},
		{name: "mismatched", doc: `<NATIONS>` + nationRecord(1) + `<NATION><NAME>x</REGION></NATION></NATIONS>`},
		{name: "empty", doc: ``},
		{name: "trailing element", doc: `<NATIONS>` + nationRecord(1) + `</NATIONS><NATIONS></NATIONS>`},
		{name: "trailing text", doc: `<NATIONS>` + nationRecord(1) + `</NATIONS>garbage`},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Error(t, Validate(strings.NewReader(test.doc)))

			reader, err := NewReader(strings.NewReader(test.doc), "NATION", nsapi.ParseNationStandard, Options{})
			require.NoError(t, err)
			_, err = Collect(reader)
			require.Error(t, err)
			require.False(t, reader.Next())
		})
	}
}

func TestValidate(t *testing.T) {
	doc := nationsDoc(10)
	require.NoError(t, Validate(strings.NewReader(doc)))
	require.NoError(t, Validate(bytes.NewReader(gzipped(t, doc))))

	corrupt := gzipped(t, doc)
	corrupt = corrupt[:len(corrupt)/2]
	require.Error(t, Validate(bytes.NewReader(corrupt)))
}

func TestOpenMalformedYieldsNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nations.xml.gz")
	doc := `<NATIONS>` + nationRecord(1) + nationRecord(2) + `<NATION><NAME>cut`
	require.NoError(t, os.WriteFile(path, gzipped(t, doc), 0600))

	// the malformed tail comes after two valid records, they must not be
	// handed out
	reader, err := Open(context.Background(), path, "NATION", nsapi.ParseNationStandard, Options{})
	require.Error(t, err)
	require.Nil(t, reader)
}

func TestOpenLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nations.xml")
	require.NoError(t, os.WriteFile(path, []byte(nationsDoc(3)), 0600))

	reader, err := Open(context.Background(), path, "NATION", nsapi.ParseNationStandard, Options{})
	require.NoError(t, err)
	records, err := Collect(reader)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.NoError(t, reader.Close())
	require.FileExists(t, path)
}

// generates a nations document of n records without holding it in memory
type nationsGenerator struct {
	n       int
	next    int
	started bool
	closed  bool
	pending []byte
}

func (g *nationsGenerator) Read(p []byte) (int, error) {
	for len(g.pending) == 0 {
		switch {
		case !g.started:
			g.pending = []byte("<NATIONS>")
			g.started = true
		case g.next < g.n:
			g.pending = []byte(nationRecord(g.next))
			g.next++
		case !g.closed:
			g.pending = []byte("</NATIONS>")
			g.closed = true
		default:
			return 0, io.EOF
		}
	}
	n := copy(p, g.pending)
	g.pending = g.pending[n:]
	return n, nil
}

func heapInuse() uint64 {
	runtime.GC()
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapInuse
}

func TestReaderMemoryIsBounded(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping memory test in short mode")
	}

	const total = 200_000
	const sampleAt = 1_000

	reader, err := NewReader(&nationsGenerator{n: total}, "NATION", nsapi.ParseNationStandard, Options{})
	require.NoError(t, err)
	defer reader.Close()

	var baseline uint64
	var peak uint64
	count := 0
	for reader.Next() {
		count++
		if count == sampleAt {
			baseline = heapInuse()
		}
		if count > sampleAt && count%20_000 == 0 {
			peak = max(peak, heapInuse())
		}
	}
	require.NoError(t, reader.Err())
	require.Equal(t, total, count)

	// the document is far larger than this bound, the heap must not grow
	// with the number of records read
	require.Less(t, peak, baseline+8<<20, "heap grew from %d to %d", baseline, peak)
}
