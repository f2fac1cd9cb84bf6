package issues

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"nstools/lib/nsapi"
	"nstools/lib/sheet"
	"nstools/lib/telemetry"
)

var tracer = telemetry.Tracer("nstools.lib.issues")

// NationSource is a sequence of dump records, a *dump.Reader satisfies it.
type NationSource interface {
	Next() bool
	Record() nsapi.NationStandard
	Err() error
}

// Puppets maps puppets to their puppetmaster, both in clean format. A
// nation without a master is its own master.
type Puppets struct {
	order  []string
	master map[string]string
}

func NewPuppets() *Puppets {
	return &Puppets{master: map[string]string{}}
}

func (p *Puppets) Add(puppet, master string) {
	puppet = nsapi.CleanFormat(puppet)
	if master == "" {
		master = puppet
	}
	if _, ok := p.master[puppet]; !ok {
		p.order = append(p.order, puppet)
	}
	p.master[puppet] = nsapi.CleanFormat(master)
}

// Nations returns the puppets in the order they were added.
func (p *Puppets) Nations() []string {
	return p.order
}

func (p *Puppets) Master(puppet string) string {
	return p.master[nsapi.CleanFormat(puppet)]
}

// Masters returns every puppetmaster in order of first appearance.
func (p *Puppets) Masters() []string {
	seen := map[string]bool{}
	var out []string
	for _, puppet := range p.order {
		master := p.master[puppet]
		if !seen[master] {
			seen[master] = true
			out = append(out, master)
		}
	}
	return out
}

// PuppetsFromRows reads "puppet<TAB>master" rows, the master is optional.
func PuppetsFromRows(rows [][]string) *Puppets {
	out := NewPuppets()
	for _, row := range rows {
		puppet := sheet.Field(row, 0)
		if puppet == "" {
			continue
		}
		out.Add(puppet, sheet.Field(row, 1))
	}
	return out
}

func answered(source NationSource, wanted nsapi.NameSet) (map[string]int, error) {
	out := map[string]int{}
	for source.Next() {
		nation := source.Record()
		if wanted.Has(nation.Name) {
			out[nsapi.CleanFormat(nation.Name)] = nation.IssuesAnswered
		}
	}
	return out, source.Err()
}

// CountChange returns how many issues each nation answered between the
// start and end dumps, keyed by clean name. A nation missing from the
// start dump started at zero, a nation missing from the end dump has
// ceased to exist and is returned in invalid instead.
func CountChange(start, end NationSource, nations []string) (map[string]int, []string, error) {
	wanted := nsapi.NewNameSet(nations...)

	starting, err := answered(start, wanted)
	if err != nil {
		return nil, nil, fmt.Errorf("read start dump: %w", err)
	}
	ending, err := answered(end, wanted)
	if err != nil {
		return nil, nil, fmt.Errorf("read end dump: %w", err)
	}

	delta := map[string]int{}
	var invalid []string
	seen := map[string]bool{}
	for _, nation := range nations {
		key := nsapi.CleanFormat(nation)
		if seen[key] {
			continue
		}
		seen[key] = true
		final, ok := ending[key]
		if !ok {
			invalid = append(invalid, key)
			continue
		}
		delta[key] = final - starting[key]
	}
	if len(invalid) > 0 {
		slog.Warn("nations missing from the end dump", "count", len(invalid), "nations", invalid)
	}
	return delta, invalid, nil
}

// Count is the number of issues answered by the puppets of a master.
type Count struct {
	Master string
	Issues int
}

// Collect sums the change of every puppet into its master. Every master
// is listed, even when none of its puppets answered anything.
func Collect(puppets *Puppets, delta map[string]int) []Count {
	index := map[string]int{}
	var out []Count
	for _, master := range puppets.Masters() {
		index[master] = len(out)
		out = append(out, Count{Master: master})
	}
	for _, puppet := range puppets.Nations() {
		change, ok := delta[puppet]
		if !ok {
			continue
		}
		out[index[puppets.Master(puppet)]].Issues += change
	}
	return out
}

// WriteCounts writes "master,count" lines.
func WriteCounts(w io.Writer, counts []Count) error {
	for _, c := range counts {
		_, err := fmt.Fprintf(w, "%s,%d\n", c.Master, c.Issues)
		if err != nil {
			return err
		}
	}
	return nil
}

// Period is the pair of archived dumps issues are counted between, and the
// month a report is labelled with.
type Period struct {
	Start time.Time
	End   time.Time
	Month time.Time
}

// MonthPeriod counts across a month given as YYYY-MM, from the last day of
// the previous month to the last day of the month.
func MonthPeriod(month string) (Period, error) {
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return Period{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return Period{
		Start: first.AddDate(0, 0, -1),
		End:   first.AddDate(0, 1, -1),
		Month: first,
	}, nil
}

// DatesPeriod counts between two YYYY-MM-DD dates. The report month
// defaults to the month of the end date.
func DatesPeriod(start, end, month string) (Period, error) {
	startDate, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return Period{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	endDate, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return Period{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if endDate.Before(startDate) {
		return Period{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}

	reportMonth := time.Date(endDate.Year(), endDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	if month != "" {
		reportMonth, err = time.Parse("2006-01", month)
		if err != nil {
			return Period{}, fmt.Errorf("invalid month %q: %w", month, err)
		}
	}
	return Period{Start: startDate, End: endDate, Month: reportMonth}, nil
}
