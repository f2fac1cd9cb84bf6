package webclient

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"nstools/lib/htmlutil"
	"nstools/lib/nsapi"
	"nstools/lib/restyutil"
	"nstools/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/publicsuffix"
)

var tracer = telemetry.Tracer("nstools.lib.webclient")

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

// DefaultDelay keeps the client under the site's limit of 10 page loads a
// minute.
const DefaultDelay = 6100 * time.Millisecond

var (
	ErrFormMissing  = fmt.Errorf("expected form not found on page")
	ErrLoginFailed  = fmt.Errorf("failed to log in, likely an incorrect password")
	ErrChangeFailed = fmt.Errorf("settings were not updated")
)

const (
	loginPage    = "/page=login/template-overall=none"
	settingsPage = "/page=settings/template-overall=none"
	settingsOK   = "Your settings have been successfully updated."
)

type Options struct {
	UserAgent string
	BaseURL   string
	// Delay between page loads, DefaultDelay when zero.
	Delay time.Duration
}

// Client drives the html site with a cookie session. Every page load
// waits for the delay to pass since the previous one.
type Client struct {
	http    *resty.Client
	baseURL *url.URL
	delay   time.Duration

	mutex sync.Mutex
	last  time.Time
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.UserAgent) == "" {
		return nil, fmt.Errorf("a user agent is required by the site")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = nsapi.DefaultBaseURL
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	baseURL, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(baseURL.String())
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname()))
	client.SetTimeout(30 * time.Second)
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	c := &Client{http: client, baseURL: baseURL, delay: opts.Delay}
	err = c.Reset()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Reset drops the session cookies.
func (c *Client) Reset() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	c.http.SetCookieJar(jar)
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.last.IsZero() {
		remaining := c.delay - time.Since(c.last)
		if remaining > 0 {
			slog.DebugContext(ctx, "waiting for the page rate limit", "duration", remaining)
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	c.last = time.Now()
	return nil
}

type page struct {
	url *url.URL
	doc *goquery.Document
	raw []byte
}

func (c *Client) load(ctx context.Context, req func(r *resty.Request) (*resty.Response, error)) (page, error) {
	err := c.wait(ctx)
	if err != nil {
		return page{}, err
	}
	res, err := req(c.http.R().SetContext(ctx))
	if err != nil {
		return page{}, err
	}
	if res.IsError() {
		return page{}, fmt.Errorf("site responded with %s", res.Status())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return page{}, err
	}
	return page{url: res.RawResponse.Request.URL, doc: doc, raw: res.Body()}, nil
}

func (c *Client) get(ctx context.Context, path string) (page, error) {
	return c.load(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get(path)
	})
}

// submit fills a form with values and posts it.
func (c *Client) submit(ctx context.Context, p page, field string, values map[string]string) (page, error) {
	form, ok := htmlutil.FindForm(p.doc, field)
	if !ok {
		return page{}, ErrFormMissing
	}
	data := htmlutil.FormValues(form)
	for k, v := range values {
		data.Set(k, v)
	}
	action, err := htmlutil.FormAction(form, p.url)
	if err != nil {
		return page{}, err
	}
	return c.load(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetFormDataFromValues(data).Post(action.String())
	})
}

// Login starts a session as nation.
func (c *Client) Login(ctx context.Context, nation, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()
	span.SetAttributes(attribute.String("nation", nation))

	login, err := c.get(ctx, loginPage)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open login page")
		return err
	}
	res, err := c.submit(ctx, login, "nation", map[string]string{
		"nation":   nation,
		"password": password,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit login")
		return err
	}
	if res.doc.Find("body#loggedin").Length() == 0 {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return ErrLoginFailed
	}
	return nil
}

// ChangePassword sets the password of the nation logged in.
func (c *Client) ChangePassword(ctx context.Context, password string) error {
	ctx, span := tracer.Start(ctx, "client:ChangePassword")
	defer span.End()

	settings, err := c.get(ctx, settingsPage)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open settings page")
		return err
	}
	res, err := c.submit(ctx, settings, "confirm_password", map[string]string{
		"password":         password,
		"confirm_password": password,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit settings")
		return err
	}
	if !bytes.Contains(res.raw, []byte(settingsOK)) {
		span.SetStatus(codes.Error, ErrChangeFailed.Error())
		return ErrChangeFailed
	}
	return nil
}

// Change is a password change to perform.
type Change struct {
	Nation  string
	Current string
	New     string
}

// ParseChanges reads "nation,current,new" lines, blank lines are ignored.
func ParseChanges(r io.Reader) ([]Change, error) {
	var out []Change
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.SplitN(text, ",", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("line %d: expected nation,current,new", line)
		}
		out = append(out, Change{Nation: parts[0], Current: parts[1], New: parts[2]})
	}
	return out, scanner.Err()
}

// ChangeAll performs every change with a fresh session each. Failures are
// logged and returned per change, only a cancelled context stops early.
func (c *Client) ChangeAll(ctx context.Context, changes []Change) (map[string]error, error) {
	out := map[string]error{}
	for _, change := range changes {
		slog.InfoContext(ctx, "changing password", "nation", change.Nation)
		err := c.Reset()
		if err != nil {
			return out, err
		}
		err = c.Login(ctx, change.Nation, change.Current)
		if err == nil {
			err = c.ChangePassword(ctx, change.New)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return out, err
		}
		if err != nil {
			slog.WarnContext(ctx, "password change failed", "nation", change.Nation, "err", err)
		} else {
			slog.InfoContext(ctx, "password changed", "nation", change.Nation)
		}
		out[change.Nation] = err
	}
	return out, nil
}
