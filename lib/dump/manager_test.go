package dump

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"nstools/lib/testutil"

	"github.com/stretchr/testify/require"
)

type dumpServer struct {
	downloads map[string]*atomic.Int64
	srv       *httptest.Server
}

func newDumpServer(t testing.TB, files map[string][]byte) *dumpServer {
	t.Helper()
	s := &dumpServer{downloads: map[string]*atomic.Int64{}}
	for path := range files {
		s.downloads[path] = &atomic.Int64{}
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		contents, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.downloads[r.URL.Path].Add(1)
		w.Write(contents)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *dumpServer) count(path string) int64 {
	return s.downloads[path].Load()
}

func TestManagerUpdate(t *testing.T) {
	testutil.Setup(t, "dump")
	ctx := context.Background()
	srv := newDumpServer(t, map[string][]byte{
		"/pages/nations.xml.gz": gzipped(t, nationsDoc(5)),
	})

	now := utc(2024, 5, 1, 8, 0)
	dir := t.TempDir()
	manager, err := NewManager(ManagerOptions{
		UserAgent: "nstools tests",
		Directory: dir,
		BaseURL:   srv.srv.URL,
		Markers:   newTestMarkers(t),
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	// no marker yet
	require.NoError(t, manager.Update(ctx, Nations))
	require.EqualValues(t, 1, srv.count("/pages/nations.xml.gz"))
	require.FileExists(t, filepath.Join(dir, "nations.xml.gz"))

	// marker is current
	now = utc(2024, 5, 1, 23, 0)
	require.NoError(t, manager.Update(ctx, Nations))
	require.EqualValues(t, 1, srv.count("/pages/nations.xml.gz"))

	// marker is current but the file was removed
	require.NoError(t, os.Remove(filepath.Join(dir, "nations.xml.gz")))
	require.NoError(t, manager.Update(ctx, Nations))
	require.EqualValues(t, 2, srv.count("/pages/nations.xml.gz"))

	// a new dump was generated
	now = utc(2024, 5, 2, 6, 30)
	require.NoError(t, manager.Update(ctx, Nations))
	require.EqualValues(t, 3, srv.count("/pages/nations.xml.gz"))

	marker, ok, err := manager.markers.Get(ctx, Nations.Name)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, now, marker.RetrievedAt)
	require.Equal(t, srv.srv.URL+"/pages/nations.xml.gz", marker.Source)

	// no partial downloads are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestManagerNations(t *testing.T) {
	ctx := context.Background()
	day := utc(2024, 5, 1, 0, 0)
	srv := newDumpServer(t, map[string][]byte{
		"/pages/nations.xml.gz":                      gzipped(t, nationsDoc(5)),
		"/archive/nations/2024-05-01-nations-xml.gz": gzipped(t, nationsDoc(2)),
	})

	manager, err := NewManager(ManagerOptions{
		UserAgent: "nstools tests",
		Directory: t.TempDir(),
		BaseURL:   srv.srv.URL,
	})
	require.NoError(t, err)

	reader, err := manager.Nations(ctx, DumpOptions{})
	require.NoError(t, err)
	nations, err := Collect(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.Len(t, nations, 5)
	require.Equal(t, "Nation 4", nations[4].Name)

	reader, err = manager.Nations(ctx, DumpOptions{Date: day})
	require.NoError(t, err)
	nations, err = Collect(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.Len(t, nations, 2)

	// archives are static, a second read does not download again
	reader, err = manager.Nations(ctx, DumpOptions{Date: day})
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.EqualValues(t, 1, srv.count("/archive/nations/2024-05-01-nations-xml.gz"))
}

func TestManagerMissingDump(t *testing.T) {
	srv := newDumpServer(t, map[string][]byte{})
	dir := t.TempDir()
	manager, err := NewManager(ManagerOptions{
		UserAgent: "nstools tests",
		Directory: dir,
		BaseURL:   srv.srv.URL,
	})
	require.NoError(t, err)

	_, err = manager.Regions(context.Background(), DumpOptions{})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestOpenRemote(t *testing.T) {
	srv := newDumpServer(t, map[string][]byte{
		"/good.xml.gz": gzipped(t, nationsDoc(3)),
		"/bad.xml.gz":  gzipped(t, "<NATIONS>"+nationRecord(1)),
	})

	manager, err := NewManager(ManagerOptions{UserAgent: "nstools tests", Directory: t.TempDir()})
	require.NoError(t, err)

	reader, err := manager.Regions(context.Background(), DumpOptions{Location: srv.srv.URL + "/bad.xml.gz"})
	require.Error(t, err)
	require.Nil(t, reader)

	nations, err := manager.Nations(context.Background(), DumpOptions{Location: srv.srv.URL + "/good.xml.gz"})
	require.NoError(t, err)
	records, err := Collect(nations)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.NoError(t, nations.Close())
}

func TestManagerLocalLocation(t *testing.T) {
	ctx := context.Background()
	srv := newDumpServer(t, map[string][]byte{
		"/pages/nations.xml.gz": gzipped(t, nationsDoc(4)),
	})

	now := utc(2024, 5, 1, 8, 0)
	dir := t.TempDir()
	manager, err := NewManager(ManagerOptions{
		UserAgent: "nstools tests",
		Directory: dir,
		BaseURL:   srv.srv.URL,
		Markers:   newTestMarkers(t),
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	location := filepath.Join(t.TempDir(), "elsewhere", "nations.xml.gz")
	read := func() int {
		reader, err := manager.Nations(ctx, DumpOptions{Location: location})
		require.NoError(t, err)
		nations, err := Collect(reader)
		require.NoError(t, err)
		require.NoError(t, reader.Close())
		return len(nations)
	}

	// a missing local file is downloaded into place
	require.Equal(t, 4, read())
	require.FileExists(t, location)
	require.NoFileExists(t, filepath.Join(dir, "nations.xml.gz"))
	require.EqualValues(t, 1, srv.count("/pages/nations.xml.gz"))

	marker, ok, err := manager.markers.Get(ctx, location)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, now, marker.RetrievedAt)

	// current
	require.Equal(t, 4, read())
	require.EqualValues(t, 1, srv.count("/pages/nations.xml.gz"))

	// outdated
	now = utc(2024, 5, 2, 6, 30)
	require.Equal(t, 4, read())
	require.EqualValues(t, 2, srv.count("/pages/nations.xml.gz"))

	// NoUpdate only checks the file exists
	now = utc(2024, 5, 3, 6, 30)
	reader, err := manager.Nations(ctx, DumpOptions{Location: location, NoUpdate: true})
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.EqualValues(t, 2, srv.count("/pages/nations.xml.gz"))
}
