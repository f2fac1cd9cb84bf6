package commands

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"nstools/lib/nsapi"
	"nstools/lib/sheet"

	"github.com/stretchr/testify/require"
)

func TestCollectNations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<REGION><NATIONS>%s</NATIONS></REGION>", "kappa:Alpha:lambda")
	}))
	t.Cleanup(srv.Close)
	client, err := nsapi.NewClient(nsapi.Options{UserAgent: "nstools tests", BaseURL: srv.URL})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nations.tsv")
	require.NoError(t, os.WriteFile(path, []byte("zeta\tnotes\nBeta\n\nDelta\n"), 0600))

	nations, err := collectNations(context.Background(), client, sheet.NewReader("nstools tests"),
		[]string{"Zeta", "alpha"}, []string{path}, []string{"shinka"})
	require.NoError(t, err)
	// rows keep the order nations were first named in, not sorted
	require.Equal(t, []string{"Zeta", "alpha", "Beta", "Delta", "kappa", "lambda"}, nations)

	_, err = collectNations(context.Background(), client, sheet.NewReader("nstools tests"),
		nil, []string{filepath.Join(t.TempDir(), "missing.tsv")}, nil)
	require.Error(t, err)
}

func TestWriteNations(t *testing.T) {
	cases := []struct {
		name     string
		format   string
		header   string
		nations  []string
		expected string
	}{
		{
			name:     "plain",
			format:   "plain",
			nations:  []string{"Alpha", "beta"},
			expected: "Alpha\nbeta\n",
		},
		{
			name:     "plain empty",
			format:   "plain",
			expected: "",
		},
		{
			name:     "links empty keeps header",
			format:   "links",
			header:   "0 nations:",
			expected: "0 nations:\n",
		},
		{
			name:     "links",
			format:   "links",
			nations:  []string{"Big Land"},
			expected: "1. https://www.nationstates.net/nation=big_land\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, writeNations(&out, tc.format, tc.header, tc.nations))
			require.Equal(t, tc.expected, out.String())
		})
	}

	require.Error(t, writeNations(&bytes.Buffer{}, "csv", "", nil))
}
