package search

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nstools/lib/nsapi"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type regionSource struct {
	records []nsapi.RegionStandard
	pos     int
}

func (s *regionSource) Next() bool {
	if s.pos >= len(s.records) {
		return false
	}
	s.pos++
	return true
}

func (s *regionSource) Record() nsapi.RegionStandard { return s.records[s.pos-1] }
func (s *regionSource) Err() error                   { return nil }

func newTestClient(t testing.TB, handler http.HandlerFunc) *nsapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := nsapi.NewClient(nsapi.Options{UserAgent: "nstools tests", BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestParseEnding(t *testing.T) {
	testCases := []struct {
		text     string
		expected Ending
		ok       bool
	}{
		{"@@testlandia@@ ceased to exist in %%the_pacific%%.", Ending{"testlandia", "the_pacific"}, true},
		{"@@a@@ ceased to exist in %%b%%, an ex-nation of @@c@@.", Ending{"a", "b"}, true},
		{"@@testlandia@@ ceased to exist.", Ending{}, false},
		{"", Ending{}, false},
	}
	for _, test := range testCases {
		ending, ok := parseEnding(test.text)
		require.Equal(t, test.ok, ok, test.text)
		require.Equal(t, test.expected, ending, test.text)
	}
}

func TestEndings(t *testing.T) {
	before := time.Unix(1700086400, 0)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "happenings", q.Get("q"))
		require.Equal(t, "cte", q.Get("filter"))
		require.Equal(t, "1700000000", q.Get("sincetime"))
		require.Equal(t, "1700086400", q.Get("beforetime"))
		w.Write([]byte(`<WORLD><HAPPENINGS>
<EVENT id="3"><TIMESTAMP>1700080000</TIMESTAMP><TEXT>@@big_land@@ ceased to exist in %%shinka%%.</TEXT></EVENT>
<EVENT id="2"><TIMESTAMP>1700070000</TIMESTAMP><TEXT>something unrelated</TEXT></EVENT>
<EVENT id="1"><TIMESTAMP>1700060000</TIMESTAMP><TEXT>@@alpha@@ ceased to exist in %%lazarus%%.</TEXT></EVENT>
</HAPPENINGS></WORLD>`))
	})

	endings, err := Endings(context.Background(), client, time.Time{}, before)
	require.NoError(t, err)
	diff := cmp.Diff([]Ending{
		{Nation: "big_land", Region: "shinka"},
		{Nation: "alpha", Region: "lazarus"},
	}, endings)
	if diff != "" {
		t.Fatal(diff)
	}

	founders, err := FounderEndings(endings, &regionSource{records: []nsapi.RegionStandard{
		{Name: "Lazarus", Founder: "Alpha"},
		{Name: "The Pacific", Founder: ""},
		{Name: "Big Region", Founder: "Big Land"},
		{Name: "Other", Founder: "gamma"},
	}})
	require.NoError(t, err)
	require.Equal(t, []Ending{
		{Nation: "alpha", Region: "lazarus"},
		{Nation: "big_land", Region: "shinka"},
	}, founders)
}

func TestTaggedRegions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "defender,-fascist", r.URL.Query().Get("tags"))
		w.Write([]byte(`<WORLD><REGIONS>Lily,The Embassy,Dead Sea</REGIONS></WORLD>`))
	})

	regions, err := TaggedRegions(context.Background(), client, []string{"dead_sea", "LILY"}, "defender", "-fascist")
	require.NoError(t, err)
	require.Equal(t, []string{"The Embassy"}, regions)
}

func TestRegionResidents(t *testing.T) {
	residents, err := RegionResidents(&regionSource{records: []nsapi.RegionStandard{
		{Name: "Shinka", Nations: []string{"Alpha", "big land"}},
		{Name: "Elsewhere", Nations: []string{"gamma"}},
		{Name: "The Embassy", Nations: nil},
	}}, []string{"the_embassy", "shinka", "missing"})
	require.NoError(t, err)
	require.Equal(t, []Residents{
		{Region: "Shinka", Nations: []string{"Alpha", "big land"}},
		{Region: "The Embassy"},
	}, residents)

	var out bytes.Buffer
	require.NoError(t, WriteAnnouncement(&out, residents))
	require.Equal(t, "Shinka:[nation]alpha[/nation][nation]big_land[/nation]\nThe Embassy:\n", out.String())
}
