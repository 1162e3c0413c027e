package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultBaseURL = "https://explorer.lichess.ovh"
	defaultTimeout = 5 * time.Second

	DatabaseLichess = "lichess"
	DatabaseMasters = "masters"
)

// Client queries the Lichess opening explorer.
type Client struct {
	baseURL  string
	database string
	speeds   []string
	ratings  []string
	variant  string
	token    string
	timeout  time.Duration
	http     *fasthttp.Client
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(u) != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithDatabase selects "lichess" or "masters". Other values are ignored.
func WithDatabase(db string) ClientOption {
	return func(c *Client) {
		switch strings.ToLower(strings.TrimSpace(db)) {
		case DatabaseLichess:
			c.database = DatabaseLichess
		case DatabaseMasters:
			c.database = DatabaseMasters
		}
	}
}

func WithSpeeds(speeds ...string) ClientOption {
	return func(c *Client) { c.speeds = compact(speeds) }
}

func WithRatings(ratings ...string) ClientOption {
	return func(c *Client) { c.ratings = compact(ratings) }
}

func WithVariant(v string) ClientOption {
	return func(c *Client) { c.variant = strings.TrimSpace(v) }
}

func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		database: DatabaseLichess,
		timeout:  defaultTimeout,
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Database() string { return c.database }

type explorerMove struct {
	UCI   string `json:"uci"`
	SAN   string `json:"san"`
	White int64  `json:"white"`
	Draws int64  `json:"draws"`
	Black int64  `json:"black"`
}

type explorerResponse struct {
	White int64          `json:"white"`
	Draws int64          `json:"draws"`
	Black int64          `json:"black"`
	Moves []explorerMove `json:"moves"`
}

var _ Source = (*Client)(nil)

// Sample returns per-move game counts for fen. A move's count is the sum of
// white wins, black wins and draws.
func (c *Client) Sample(ctx context.Context, fen string) (Sample, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.requestURI(fen))
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatsFetchFailed, err)
	}
	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrStatsFetchFailed, status, truncate(string(resp.Body()), 256))
	}

	var payload explorerResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrStatsFetchFailed, err)
	}

	out := make(Sample, 0, len(payload.Moves))
	for _, mv := range payload.Moves {
		if mv.UCI == "" {
			continue
		}
		out = append(out, MoveCount{
			UCI:   mv.UCI,
			SAN:   mv.SAN,
			Count: mv.White + mv.Draws + mv.Black,
		})
	}
	return out, nil
}

func (c *Client) requestURI(fen string) string {
	q := url.Values{}
	q.Set("fen", fen)
	if len(c.speeds) > 0 && c.database == DatabaseLichess {
		q.Set("speeds", strings.Join(c.speeds, ","))
	}
	if len(c.ratings) > 0 && c.database == DatabaseLichess {
		q.Set("ratings", strings.Join(c.ratings, ","))
	}
	if c.variant != "" && c.database == DatabaseLichess {
		q.Set("variant", c.variant)
	}
	return c.baseURL + "/" + c.database + "?" + q.Encode()
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
