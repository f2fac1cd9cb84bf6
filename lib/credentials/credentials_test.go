package credentials

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nstools/lib/nsapi"
	"nstools/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"alpha,hunter2",
		"",
		"no comma here",
		"  beta , pass,with,commas  ",
		",orphan secret",
		"gamma,",
	}, "\n")

	entries, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	expected := []Entry{
		{Nation: "alpha", Secret: "hunter2"},
		{Nation: "beta", Secret: " pass,with,commas"},
	}
	diff := cmp.Diff(expected, entries)
	if diff != "" {
		t.Fatal(diff)
	}
}

// serves nations whose password is their name reversed
func newLoginServer(t testing.TB) *nsapi.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nation := r.URL.Query().Get("nation")
		password := r.Header.Get("X-Password")
		autologin := r.Header.Get("X-Autologin")

		runes := []rune(nation)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		reversed := string(runes)

		if password != reversed && autologin != "key-"+nation {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, "<h1>Authentication Failed</h1>")
			return
		}
		w.Header().Set("X-Autologin", "key-"+nation)
		w.Header().Set("X-Pin", "1234")
		wa := "Non-member"
		if nation == "alpha" {
			wa = "WA Member"
		}
		fmt.Fprintf(w, "<NATION id=%q><REGION>Shinka</REGION><PING>1</PING><UNSTATUS>%s</UNSTATUS></NATION>", nation, wa)
	}))
	t.Cleanup(srv.Close)

	client, err := nsapi.NewClient(nsapi.Options{UserAgent: "nstools tests", BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestLoginAll(t *testing.T) {
	testutil.Setup(t, "credentials")
	client := newLoginServer(t)
	ctx := context.Background()

	results, err := LoginAll(ctx, client, []Entry{
		{Nation: "alpha", Secret: "ahpla"},
		{Nation: "beta", Secret: "wrong"},
		{Nation: "gamma", Secret: "ammag"},
	}, true)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.True(t, results[0].OK())
	require.Equal(t, "key-alpha", results[0].Autologin)
	require.Equal(t, "Shinka", results[0].Region)
	require.True(t, results[0].WA)

	require.False(t, results[1].OK())
	require.ErrorIs(t, results[1].Err, nsapi.ErrAuth)

	require.True(t, results[2].OK())
	require.False(t, results[2].WA)

	var out bytes.Buffer
	require.NoError(t, WriteAutologins(&out, results))
	require.Equal(t, "alpha,key-alpha\ngamma,key-gamma\n", out.String())

	// the written keys log in on their own
	entries, err := Parse(&out)
	require.NoError(t, err)
	results, err = LoginAll(ctx, client, entries, false)
	require.NoError(t, err)
	for _, result := range results {
		require.NoError(t, result.Err)
	}
}

func TestLoginAllCancelled(t *testing.T) {
	client := newLoginServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := LoginAll(ctx, client, []Entry{{Nation: "alpha", Secret: "ahpla"}}, true)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, results)
}
