package endorse

import (
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

type sliceSource struct {
	records []nsapi.NationStandard
	pos     int
	err     error
}

func (s *sliceSource) Next() bool {
	if s.pos >= len(s.records) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Record() nsapi.NationStandard {
	return s.records[s.pos-1]
}

func (s *sliceSource) Err() error {
	return s.err
}

func member(name, region string, endorsements ...string) nsapi.NationStandard {
	return nsapi.NationStandard{Name: name, Region: region, WAStatus: "WA Member", Endorsements: endorsements}
}

func fixtureNations() []nsapi.NationStandard {
	return []nsapi.NationStandard{
		member("Alpha", "Shinka", "beta", "gamma"),
		member("Beta", "Shinka", "alpha"),
		member("Gamma", "shinka"),
		member("Delta", "Elsewhere", "alpha"),
		{Name: "Epsilon", Region: "Shinka", WAStatus: "Non-member"},
	}
}

func TestUnendorsedFromDump(t *testing.T) {
	nations, err := UnendorsedFromDump(&sliceSource{records: fixtureNations()}, "alpha", "SHINKA")
	require.NoError(t, err)
	require.Equal(t, []string{"Gamma"}, nations)

	_, err = UnendorsedFromDump(&sliceSource{err: fmt.Errorf("truncated")}, "alpha", "shinka")
	require.Error(t, err)
}

func TestUnendorsedKeepsSpelling(t *testing.T) {
	records := []nsapi.NationStandard{
		member("Big Land", "Shinka"),
		member("Zeta Land", "Shinka"),
		member("alpha land", "Shinka"),
		member("Endorser", "Shinka"),
	}
	nations, err := UnendorsedFromDump(&sliceSource{records: records}, "endorser", "shinka")
	require.NoError(t, err)
	require.Equal(t, []string{"alpha land", "Big Land", "Zeta Land"}, nations)
}

func TestLowEndorsements(t *testing.T) {
	nations, err := LowEndorsements(&sliceSource{records: fixtureNations()}, "shinka", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Beta", "Gamma"}, nations)
}

func TestFormatLinks(t *testing.T) {
	out := FormatLinks("Unendorsed:", []string{"Big Land", "other"})
	require.Equal(t, "Unendorsed:\n"+
		"1. https://www.nationstates.net/nation=big_land\n"+
		"2. https://www.nationstates.net/nation=other\n", out)
	require.Empty(t, FormatLinks("", nil))
}

type fakeWorld struct {
	wa        []string
	regions   map[string][]string
	nations   map[string]string
	endorsers map[string][]string
	requests  int
}

func (f *fakeWorld) handler(t testing.TB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.requests++
		q := r.URL.Query()
		switch {
		case q.Get("wa") != "":
			fmt.Fprintf(w, "<WA council=\"1\"><MEMBERS>%s</MEMBERS></WA>", strings.Join(f.wa, ","))
		case q.Get("region") != "":
			fmt.Fprintf(w, "<REGION><NATIONS>%s</NATIONS></REGION>", strings.Join(f.regions[q.Get("region")], ":"))
		case q.Get("nation") != "":
			name := q.Get("nation")
			region, ok := f.nations[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprintf(w, "<NATION id=%q><REGION>%s</REGION><ENDORSEMENTS>%s</ENDORSEMENTS></NATION>",
				name, region, strings.Join(f.endorsers[name], ","))
		default:
			t.Errorf("unexpected request %s", r.URL)
			w.WriteHeader(http.StatusBadRequest)
		}
	}
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		wa: []string{"alpha", "beta", "gamma", "delta"},
		regions: map[string][]string{
			"shinka": {"alpha", "beta", "gamma", "epsilon"},
		},
		nations: map[string]string{
			"alpha": "Shinka", "beta": "Shinka", "gamma": "Shinka", "epsilon": "Shinka",
		},
		endorsers: map[string][]string{
			"alpha": {"beta", "gamma"},
			"beta":  {"alpha"},
			"gamma": {"beta"},
		},
	}
}

func newTestClient(t testing.TB, world *fakeWorld) *nsapi.Client {
	t.Helper()
	srv := httptest.NewServer(world.handler(t))
	t.Cleanup(srv.Close)
	client, err := nsapi.NewClient(nsapi.Options{UserAgent: "nstools tests", BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestRegionWAMembers(t *testing.T) {
	client := newTestClient(t, newFakeWorld())
	members, err := RegionWAMembers(context.Background(), client, "shinka")
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta", "gamma"}, sorted(members))
}

func TestUnendorsedFromAPI(t *testing.T) {
	client := newTestClient(t, newFakeWorld())
	region, nations, err := UnendorsedFromAPI(context.Background(), client, "alpha")
	require.NoError(t, err)
	require.Equal(t, "Shinka", region)
	// beta is endorsed by alpha, gamma is not
	require.Equal(t, []string{"gamma"}, nations)
}

func TestNonendorsers(t *testing.T) {
	client := newTestClient(t, newFakeWorld())
	region, nations, err := Nonendorsers(context.Background(), client, "gamma")
	require.NoError(t, err)
	require.Equal(t, "Shinka", region)
	require.Equal(t, []string{"alpha"}, nations)
}

func TestCrossGraph(t *testing.T) {
	testutil.Setup(t, "endorse")
	world := newFakeWorld()
	world.endorsers["gamma"] = []string{"beta", "zeta"}
	client := newTestClient(t, world)

	g, err := CrossGraph(context.Background(), client, "Alpha")
	require.NoError(t, err)

	nations, err := g.Nations()
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta", "gamma"}, nations)
	require.True(t, g.Endorses("beta", "alpha"))
	require.False(t, g.Endorses("alpha", "gamma"))
	require.Equal(t, "Alpha", g.Spelling("alpha"))
	require.Equal(t, "gamma", g.Spelling("Gamma"))
	require.Equal(t, "outsider", g.Spelling("Outsider"))

	missing, err := g.MissingCrosses()
	require.NoError(t, err)
	expected := map[string][]string{
		"alpha": {"gamma"},
		"beta":  {},
		"gamma": {"beta"},
	}
	diff := cmp.Diff(expected, missing)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestRegionGraph(t *testing.T) {
	g, err := RegionGraph(&sliceSource{records: fixtureNations()}, "shinka")
	require.NoError(t, err)

	endorsees, err := g.Endorsees()
	require.NoError(t, err)
	expected := map[string][]string{
		"alpha": {"beta"},
		"beta":  {"alpha"},
		"gamma": {"alpha"},
	}
	diff := cmp.Diff(expected, endorsees)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestGraphDuplicates(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNation("A"))
	require.NoError(t, g.AddNation("a"))
	require.NoError(t, g.AddNation("b"))
	require.NoError(t, g.AddEndorsement("a", "b"))
	require.NoError(t, g.AddEndorsement("A", "B"))
	require.Error(t, g.AddEndorsement("a", "missing"))
}

func TestDeployments(t *testing.T) {
	roster, err := ParseRoster(strings.NewReader(`{
		// main nations and their puppets
		"Alpha Main": ["beta", "Gamma"],
		"Delta": [],
	}`))
	require.NoError(t, err)

	world := newFakeWorld()
	world.endorsers["alpha"] = []string{"gamma", "epsilon", "delta", "beta"}
	client := newTestClient(t, world)

	deployments, err := Deployments(context.Background(), client, []string{"alpha", "beta"}, roster)
	require.NoError(t, err)
	diff := cmp.Diff([]Deployment{
		{Lead: "alpha", Members: []string{"Alpha Main", "Delta"}},
		{Lead: "beta", Members: nil},
	}, deployments)
	if diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, "alpha (2): Alpha Main, Delta", deployments[0].String())
	require.Equal(t, "beta (0): ", deployments[1].String())

	_, err = ParseRoster(strings.NewReader(`["not", "an", "object"]`))
	require.Error(t, err)
}
