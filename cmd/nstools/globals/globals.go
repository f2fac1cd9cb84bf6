package globals

import (
	"context"
	"time"

	"nstools/lib/dump"
	"nstools/lib/nsapi"
	"nstools/lib/notify"
	"nstools/lib/sheet"
	"nstools/lib/webclient"
)

type key struct{}

// Value is the state shared by every command, built from the resolved
// configuration by the root command.
type Value struct {
	UserAgent  string
	DumpDir    string
	MarkerDB   string
	APIBaseURL string
	APITimeout time.Duration
	Smtp       notify.EmailConfig
	HomeRegion string

	api     *nsapi.Client
	markers *dump.MarkerStore
	dumps   *dump.Manager
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key{}, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key{}).(*Value)
}

func (v *Value) API() (*nsapi.Client, error) {
	if v.api != nil {
		return v.api, nil
	}
	client, err := nsapi.NewClient(nsapi.Options{
		UserAgent: v.UserAgent,
		BaseURL:   v.APIBaseURL,
		Timeout:   v.APITimeout,
	})
	if err != nil {
		return nil, err
	}
	v.api = client
	return client, nil
}

// Dumps opens the marker store on first use.
func (v *Value) Dumps(ctx context.Context) (*dump.Manager, error) {
	if v.dumps != nil {
		return v.dumps, nil
	}
	markers, err := dump.OpenMarkerStore(ctx, v.MarkerDB)
	if err != nil {
		return nil, err
	}
	manager, err := dump.NewManager(dump.ManagerOptions{
		UserAgent: v.UserAgent,
		Directory: v.DumpDir,
		Markers:   markers,
	})
	if err != nil {
		markers.Close()
		return nil, err
	}
	v.markers = markers
	v.dumps = manager
	return manager, nil
}

func (v *Value) Sheets() *sheet.Reader {
	return sheet.NewReader(v.UserAgent)
}

func (v *Value) Web() (*webclient.Client, error) {
	return webclient.NewClient(webclient.Options{UserAgent: v.UserAgent})
}

func (v *Value) Close() error {
	if v.markers != nil {
		return v.markers.Close()
	}
	return nil
}

func (v *Value) Markers(ctx context.Context) (*dump.MarkerStore, error) {
	_, err := v.Dumps(ctx)
	if err != nil {
		return nil, err
	}
	return v.markers, nil
}
