package dump

import (
	"fmt"
	"time"
)

// GenerationTime is the time of day (UTC) the daily dumps are generated.
const GenerationTime = 6 * time.Hour

// Resource describes a downloadable file.
type Resource struct {
	// Name is the file name the resource is stored under, and the key of
	// its marker.
	Name string
	// Source is an absolute url, or a path relative to the manager's base
	// url.
	Source string
	// Daily resources are regenerated every day at UpdateAt (an offset from
	// midnight UTC). Other resources never become outdated.
	Daily    bool
	UpdateAt time.Duration
}

// Outdated reports whether a copy retrieved at previous is outdated at
// current, that is current falls on or after the first update time after
// previous.
func (r Resource) Outdated(previous, current time.Time) bool {
	if !r.Daily {
		return false
	}
	previous = previous.UTC()
	day := time.Date(previous.Year(), previous.Month(), previous.Day(), 0, 0, 0, 0, time.UTC)
	nextUpdate := day.Add(r.UpdateAt)
	if nextUpdate.Before(previous) {
		nextUpdate = nextUpdate.AddDate(0, 0, 1)
	}
	return !current.Before(nextUpdate)
}

const (
	KindNations = "nations"
	KindRegions = "regions"
)

var Nations = Resource{
	Name:     "nations.xml.gz",
	Source:   "/pages/nations.xml.gz",
	Daily:    true,
	UpdateAt: GenerationTime,
}

var Regions = Resource{
	Name:     "regions.xml.gz",
	Source:   "/pages/regions.xml.gz",
	Daily:    true,
	UpdateAt: GenerationTime,
}

// Seasons lists the seasons that have a published card list.
var Seasons = []int{1, 2, 3}

// CardList returns the static card list dump of a season.
func CardList(season int) Resource {
	name := fmt.Sprintf("cardlist_S%d.xml.gz", season)
	return Resource{
		Name:   name,
		Source: "/pages/" + name,
	}
}

// Archived returns the archived daily dump of kind ("nations" or
// "regions") for a date. Archives never change.
func Archived(date time.Time, kind string) Resource {
	name := fmt.Sprintf("%s-%s-xml.gz", date.Format(time.DateOnly), kind)
	return Resource{
		Name:   name,
		Source: fmt.Sprintf("/archive/%s/%s", kind, name),
	}
}

// Daily returns the current daily resource of kind.
func Daily(kind string) (Resource, error) {
	switch kind {
	case KindNations:
		return Nations, nil
	case KindRegions:
		return Regions, nil
	}
	return Resource{}, fmt.Errorf("unknown dump kind %q", kind)
}

// CurrentDumpDay returns the date of the latest dump that is available
// from the archive. A dump is considered available at 07:00 UTC the day
// after it was generated.
func CurrentDumpDay(now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if now.Hour() >= 7 {
		return day.AddDate(0, 0, -1)
	}
	return day.AddDate(0, 0, -2)
}

// LastDumpTimestamp returns the time the most recent daily dump was
// generated at, events after it are not part of the dump.
func LastDumpTimestamp(now time.Time) time.Time {
	now = now.UTC()
	generated := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(GenerationTime)
	if now.Before(generated) {
		generated = generated.AddDate(0, 0, -1)
	}
	return generated
}
