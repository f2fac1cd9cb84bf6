package webclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nstools/lib/testutil"

	"github.com/stretchr/testify/require"
)

// a tiny imitation of the login and settings pages
type fakeSite struct {
	mutex     sync.Mutex
	passwords map[string]string
	loads     int
}

func (s *fakeSite) handler(t testing.TB) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/page=login/template-overall=none", func(w http.ResponseWriter, r *http.Request) {
		s.count()
		fmt.Fprint(w, `<html><body id="loggedout"><form method="post" action="/page=login">
<input type="hidden" name="logging_in" value="1">
<input name="nation"><input type="password" name="password">
<button type="submit" name="submit" value="Login">Login</button></form></body></html>`)
	})
	mux.HandleFunc("/page=login", func(w http.ResponseWriter, r *http.Request) {
		s.count()
		require.NoError(t, r.ParseForm())
		require.Equal(t, "1", r.PostForm.Get("logging_in"))
		nation := r.PostForm.Get("nation")

		s.mutex.Lock()
		ok := s.passwords[nation] == r.PostForm.Get("password")
		s.mutex.Unlock()
		if !ok {
			fmt.Fprint(w, `<html><body id="loggedout">Incorrect password.</body></html>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: nation, Path: "/"})
		fmt.Fprint(w, `<html><body id="loggedin">Welcome</body></html>`)
	})
	mux.HandleFunc("/page=settings/template-overall=none", func(w http.ResponseWriter, r *http.Request) {
		s.count()
		cookie, err := r.Cookie("session")
		if err != nil {
			fmt.Fprint(w, `<html><body id="loggedout">Log in first.</body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><body id="loggedin"><form method="post">
<input type="hidden" name="localid" value="token-%s">
<input type="password" name="password"><input type="password" name="confirm_password">
<button type="submit" name="update" value="1">Update</button></form></body></html>`, cookie.Value)
	})
	mux.HandleFunc("POST /page=settings/template-overall=none", func(w http.ResponseWriter, r *http.Request) {
		s.count()
		cookie, err := r.Cookie("session")
		require.NoError(t, err)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "token-"+cookie.Value, r.PostForm.Get("localid"))
		require.Equal(t, "1", r.PostForm.Get("update"))
		if r.PostForm.Get("password") != r.PostForm.Get("confirm_password") {
			fmt.Fprint(w, `<html><body>Passwords do not match.</body></html>`)
			return
		}
		s.mutex.Lock()
		s.passwords[cookie.Value] = r.PostForm.Get("password")
		s.mutex.Unlock()
		fmt.Fprint(w, `<html><body>Your settings have been successfully updated.</body></html>`)
	})
	return mux
}

func (s *fakeSite) count() {
	s.mutex.Lock()
	s.loads++
	s.mutex.Unlock()
}

func newTestClient(t testing.TB, site *fakeSite, delay time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(site.handler(t))
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{UserAgent: "nstools tests", BaseURL: srv.URL, Delay: delay})
	require.NoError(t, err)
	return client
}

func TestParseChanges(t *testing.T) {
	changes, err := ParseChanges(strings.NewReader("alpha,old,new\n\nbeta,,fresh,with,commas\n"))
	require.NoError(t, err)
	require.Equal(t, []Change{
		{Nation: "alpha", Current: "old", New: "new"},
		{Nation: "beta", Current: "", New: "fresh,with,commas"},
	}, changes)

	_, err = ParseChanges(strings.NewReader("alpha,old\n"))
	require.Error(t, err)
}

func TestChangeAll(t *testing.T) {
	testutil.Setup(t, "webclient")
	site := &fakeSite{passwords: map[string]string{"alpha": "old", "beta": "secret"}}
	client := newTestClient(t, site, time.Millisecond)

	results, err := client.ChangeAll(context.Background(), []Change{
		{Nation: "alpha", Current: "old", New: "new"},
		{Nation: "beta", Current: "wrong", New: "new"},
	})
	require.NoError(t, err)
	require.NoError(t, results["alpha"])
	require.ErrorIs(t, results["beta"], ErrLoginFailed)

	require.Equal(t, map[string]string{"alpha": "new", "beta": "secret"}, site.passwords)
}

func TestChangePasswordWithoutSession(t *testing.T) {
	site := &fakeSite{passwords: map[string]string{}}
	client := newTestClient(t, site, time.Millisecond)

	err := client.ChangePassword(context.Background(), "new")
	require.ErrorIs(t, err, ErrFormMissing)
}

func TestPageLoadsArePaced(t *testing.T) {
	site := &fakeSite{passwords: map[string]string{"alpha": "old"}}
	const delay = 30 * time.Millisecond
	client := newTestClient(t, site, delay)

	start := time.Now()
	require.NoError(t, client.Login(context.Background(), "alpha", "old"))
	require.NoError(t, client.ChangePassword(context.Background(), "new"))
	require.Equal(t, 4, site.loads)
	// the first load does not wait
	require.GreaterOrEqual(t, time.Since(start), 3*delay)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client.delay = time.Hour
	err := client.Login(ctx, "alpha", "new")
	require.ErrorIs(t, err, context.Canceled)
}
