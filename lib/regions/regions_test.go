package regions

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"nstools/lib/nsapi"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	records []nsapi.RegionStandard
	pos     int
}

func (s *sliceSource) Next() bool {
	if s.pos >= len(s.records) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Record() nsapi.RegionStandard { return s.records[s.pos-1] }
func (s *sliceSource) Err() error                   { return nil }

func fixtureRegions() []nsapi.RegionStandard {
	return []nsapi.RegionStandard{
		{Name: "Puppet Storage", NumNations: 40, Factbook: "Store your PUPPETS here.", Nations: []string{"a", "b", "c"}, DelegateVotes: 3},
		{Name: "Tiny Storage", NumNations: 2, Factbook: "puppets welcome", Nations: []string{"d"}, DelegateVotes: 10},
		{Name: "Typo Land", NumNations: 12, Factbook: "a home for pupets", Nations: []string{"e", "f"}, DelegateVotes: 7},
		{Name: "Quiet", NumNations: 50, Factbook: "Nothing to see.", Nations: []string{"g"}},
	}
}

func TestSearchFactbooks(t *testing.T) {
	matches, err := SearchFactbooks(&sliceSource{records: fixtureRegions()}, []string{"puppets"}, SearchOptions{MinNations: 5})
	require.NoError(t, err)
	require.Equal(t, []Match{{Region: "Puppet Storage", Score: 1}}, matches)

	matches, err = SearchFactbooks(&sliceSource{records: fixtureRegions()}, []string{"puppets"}, SearchOptions{Fuzzy: 0.9})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	require.Equal(t, "Typo Land", matches[2].Region)
	require.Greater(t, matches[2].Score, 0.9)
	require.Less(t, matches[2].Score, 1.0)
}

func TestRankings(t *testing.T) {
	byMembers, err := ByWAMembers(&sliceSource{records: fixtureRegions()}, []string{"a", "B", "e", "g", "z"}, 2)
	require.NoError(t, err)
	expected := []Ranking{
		{Region: "Puppet Storage", Value: 2},
		{Region: "Typo Land", Value: 1},
	}
	diff := cmp.Diff(expected, byMembers)
	if diff != "" {
		t.Fatal(diff)
	}

	byVotes, err := ByDelegateVotes(&sliceSource{records: fixtureRegions()}, 0)
	require.NoError(t, err)
	require.Len(t, byVotes, 4)
	require.Equal(t, "Tiny Storage", byVotes[0].Region)
	require.Equal(t, "Quiet", byVotes[3].Region)
}

func TestContainerRule(t *testing.T) {
	require.Equal(t,
		`@^.*\.nationstates\.net/(.*/)?nation=big_land(/.*)?$ , Big Land`,
		ContainerRule("Big Land"),
	)
	require.Equal(t, "https://www.nationstates.net/region=the_north_pacific", Link("The North Pacific"))
}

func TestTaggedRegions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "featured,-password", r.URL.Query().Get("tags"))
		w.Write([]byte(`<WORLD><REGIONS>the_pacific,lazarus</REGIONS></WORLD>`))
	}))
	defer srv.Close()
	client, err := nsapi.NewClient(nsapi.Options{UserAgent: "nstools tests", BaseURL: srv.URL})
	require.NoError(t, err)

	regions, err := TaggedRegions(context.Background(), client, "featured", "-password")
	require.NoError(t, err)
	require.Equal(t, []string{"the_pacific", "lazarus"}, regions)

	_, err = TaggedRegions(context.Background(), client)
	require.Error(t, err)
}

func TestMessages(t *testing.T) {
	const total = 230
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		requests = append(requests, q.Get("offset")+"/"+q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, _ := strconv.Atoi(q.Get("limit"))

		var out strings.Builder
		out.WriteString("<REGION><MESSAGES>")
		for i := offset; i < min(offset+limit, total); i++ {
			fmt.Fprintf(&out, `<POST id="%d"><TIMESTAMP>%d</TIMESTAMP><NATION>poster</NATION><MESSAGE>post %d</MESSAGE></POST>`, i, 1700000000+i, i)
		}
		out.WriteString("</MESSAGES></REGION>")
		w.Write([]byte(out.String()))
	}))
	defer srv.Close()
	client, err := nsapi.NewClient(nsapi.Options{UserAgent: "nstools tests", BaseURL: srv.URL})
	require.NoError(t, err)

	messages, err := Messages(context.Background(), client, "shinka", 0, 1000)
	require.NoError(t, err)
	require.Len(t, messages, total)
	require.Equal(t, []string{"/100", "100/100", "200/100"}, requests)

	var out bytes.Buffer
	require.NoError(t, WriteMessages(&out, messages[:1], true))
	require.Equal(t, "id,timestamp,author,text\n0,1700000000,poster,post 0\n", out.String())
}
