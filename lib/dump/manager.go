package dump

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nstools/lib/nsapi"
	"nstools/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ManagerOptions struct {
	// UserAgent is sent with every download, it is required.
	UserAgent string
	// Directory holds the downloaded files, it defaults to the working
	// directory.
	Directory string
	// BaseURL is the host relative sources are resolved against.
	BaseURL string
	// Markers is optional, without it Update only verifies that files
	// exist.
	Markers *MarkerStore
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager downloads and updates dump files.
type Manager struct {
	http    *resty.Client
	dir     string
	baseURL string
	markers *MarkerStore
	now     func() time.Time
}

func NewManager(opts ManagerOptions) (*Manager, error) {
	if strings.TrimSpace(opts.UserAgent) == "" {
		return nil, fmt.Errorf("a user agent is required to download dumps")
	}
	if opts.Directory == "" {
		opts.Directory = "."
	}
	if opts.BaseURL == "" {
		opts.BaseURL = nsapi.DefaultBaseURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	client := resty.New()
	client.SetHeader("User-Agent", opts.UserAgent)
	// dumps are large, only the connection setup is bounded
	client.SetTimeout(0)
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return &Manager{
		http:    client,
		dir:     opts.Directory,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		markers: opts.Markers,
		now:     opts.Now,
	}, nil
}

// Path returns where a resource is stored.
func (m *Manager) Path(res Resource) string {
	return filepath.Join(m.dir, res.Name)
}

// URL resolves the source of a resource.
func (m *Manager) URL(res Resource) string {
	if isURL(res.Source) {
		return res.Source
	}
	return m.baseURL + res.Source
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Download fetches a resource, replacing the stored file only once the
// download completed.
func (m *Manager) Download(ctx context.Context, res Resource) (int64, error) {
	return m.downloadTo(ctx, res, m.Path(res))
}

func (m *Manager) downloadTo(ctx context.Context, res Resource, target string) (int64, error) {
	ctx, span := tracer.Start(ctx, "manager:Download")
	defer span.End()

	link := m.URL(res)
	span.SetAttributes(attribute.String("url", link), attribute.String("target", target))

	err := os.MkdirAll(filepath.Dir(target), 0777)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "downloading resource", "name", res.Name, "url", link, "target", target)
	size, err := downloadFile(ctx, m.http, link, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		return 0, err
	}
	slog.InfoContext(ctx, "finished download", "name", res.Name, "bytes", size)
	return size, nil
}

func downloadFile(ctx context.Context, client *resty.Client, link, target string) (int64, error) {
	res, err := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(link)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", link, err)
	}
	body := res.RawBody()
	defer body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("download %s: server responded with %s", link, res.Status())
	}

	partial := fmt.Sprintf("%s.%s.part", target, uuid.NewString())
	f, err := os.Create(partial)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(f, body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partial)
		return 0, fmt.Errorf("download %s: %w", link, err)
	}

	err = os.Rename(partial, target)
	if err != nil {
		os.Remove(partial)
		return 0, err
	}
	return size, nil
}

// Verify downloads a resource only when its file does not exist.
func (m *Manager) Verify(ctx context.Context, res Resource) error {
	return m.verifyAt(ctx, res, m.Path(res))
}

func (m *Manager) verifyAt(ctx context.Context, res Resource, path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	slog.InfoContext(ctx, "resource missing, downloading", "name", res.Name, "path", path)
	_, err = m.downloadTo(ctx, res, path)
	return err
}

// Update downloads a resource when it has no marker or is outdated,
// otherwise it verifies the file exists. The marker is refreshed after a
// download.
func (m *Manager) Update(ctx context.Context, res Resource) error {
	return m.updateAt(ctx, res, m.Path(res), res.Name)
}

// updateAt is Update for a file stored at path, tracked under the marker
// name.
func (m *Manager) updateAt(ctx context.Context, res Resource, path, name string) error {
	ctx, span := tracer.Start(ctx, "manager:Update")
	defer span.End()

	if m.markers == nil {
		return m.verifyAt(ctx, res, path)
	}

	marker, ok, err := m.markers.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("read marker: %w", err)
	}

	now := m.now()
	if ok && !res.Outdated(marker.RetrievedAt, now) {
		slog.DebugContext(ctx, "marker is current", "name", name, "retrieved_at", marker.RetrievedAt)
		return m.verifyAt(ctx, res, path)
	}

	slog.InfoContext(ctx, "resource outdated or unmarked", "name", name, "marked", ok)
	size, err := m.downloadTo(ctx, res, path)
	if err != nil {
		return err
	}
	return m.markers.Put(ctx, Marker{
		Name:        name,
		Source:      m.URL(res),
		RetrievedAt: now,
		Size:        size,
	})
}

type DumpOptions struct {
	// Date selects an archived dump, the zero value selects the current
	// daily dump.
	Date time.Time
	// Location overrides the stored file. A url is downloaded to a
	// temporary file on every open. A path is kept up to date like the
	// stored file, its marker is named after the path.
	Location string
	// NoUpdate only downloads a missing file and never refreshes an
	// outdated one.
	NoUpdate bool
	OnSkip   func(err *RecordError)
}

func (m *Manager) prepare(ctx context.Context, res Resource, opts DumpOptions) (string, error) {
	path, name := m.Path(res), res.Name
	if opts.Location != "" {
		if isURL(opts.Location) {
			return opts.Location, nil
		}
		path = filepath.Clean(opts.Location)
		name = path
	}

	var err error
	if opts.NoUpdate || !res.Daily {
		err = m.verifyAt(ctx, res, path)
	} else {
		err = m.updateAt(ctx, res, path, name)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func openDump[T any](ctx context.Context, m *Manager, res Resource, tag string, parse ParseFunc[T], opts DumpOptions, lenient bool) (*Reader[T], error) {
	source, err := m.prepare(ctx, res, opts)
	if err != nil {
		return nil, err
	}
	return open(ctx, m.http, source, tag, parse, Options{Context: ctx, OnSkip: opts.OnSkip, Lenient: lenient})
}

// Nations returns a validated reader over the nations dump.
func (m *Manager) Nations(ctx context.Context, opts DumpOptions) (*Reader[nsapi.NationStandard], error) {
	res := Nations
	if !opts.Date.IsZero() {
		res = Archived(opts.Date, KindNations)
	}
	return openDump(ctx, m, res, "NATION", nsapi.ParseNationStandard, opts, false)
}

func (m *Manager) Regions(ctx context.Context, opts DumpOptions) (*Reader[nsapi.RegionStandard], error) {
	res := Regions
	if !opts.Date.IsZero() {
		res = Archived(opts.Date, KindRegions)
	}
	return openDump(ctx, m, res, "REGION", nsapi.ParseRegionStandard, opts, false)
}

// Cards returns a reader over the card list of a season. Card lists are
// known to carry malformed markup, so they are parsed leniently.
func (m *Manager) Cards(ctx context.Context, season int, opts DumpOptions) (*Reader[nsapi.CardStandard], error) {
	return openDump(ctx, m, CardList(season), "CARD", nsapi.ParseCardStandard, opts, true)
}
