package restyutil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex    sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.messages[id] = contents
}

func TestInstrumentClientRedacts(t *testing.T) {
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(previous)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pin", "1234")
		w.Write([]byte("<NATION/>"))
	}))
	defer srv.Close()

	out := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	InstrumentClient(client, nil, out)

	_, err := client.R().
		SetContext(context.Background()).
		SetHeader("X-Password", "hunter2").
		SetHeader("User-Agent", "tests").
		Get(srv.URL)
	require.NoError(t, err)

	require.Len(t, out.messages, 1)
	for _, msg := range out.messages {
		require.NotContains(t, msg, "hunter2")
		require.NotContains(t, msg, "1234")
		require.Contains(t, msg, "X-Password: [redacted]")
		require.Contains(t, msg, "User-Agent: tests")
		require.True(t, strings.HasSuffix(msg, "<NATION/>"))
	}
}

func TestFormatRequestBodyWithoutBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, "", formatRequestBody(req))

	req.GetBody = func() (io.ReadCloser, error) { return nil, nil }
	require.Equal(t, "", formatRequestBody(req))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("nation=a&password=b")), nil
	}
	require.NotContains(t, formatRequestBody(req), "password=b")
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "resty")
	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	out.Write("1", "hello")
	contents, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(contents))
}

func TestRedactForm(t *testing.T) {
	testCases := []struct {
		body     string
		expected string
	}{
		{body: "nation=testlandia&password=hunter2&logging_in=1", expected: "nation=testlandia&password=[redacted]&logging_in=1"},
		{body: "password=a&confirm_password=a&update=1", expected: "password=[redacted]&confirm_password=[redacted]&update=1"},
		{body: "nation=testlandia", expected: "nation=testlandia"},
		{body: "", expected: ""},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, redactForm(test.body))
	}
}
