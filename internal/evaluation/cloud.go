package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultCloudBaseURL = "https://lichess.org"
	defaultCloudTimeout = 3 * time.Second
)

var ErrNotFound = errors.New("position not in cloud evaluation database")

// CloudClient queries the Lichess cloud-eval endpoint.
type CloudClient struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
	multiPV int
	token   string
}

type CloudOption func(*CloudClient)

func WithCloudBaseURL(u string) CloudOption {
	return func(c *CloudClient) {
		if strings.TrimSpace(u) != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithCloudTimeout(d time.Duration) CloudOption {
	return func(c *CloudClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMultiPV(n int) CloudOption {
	return func(c *CloudClient) {
		if n > 0 {
			c.multiPV = n
		}
	}
}

// WithCloudToken sets a Lichess API token sent as a bearer header.
func WithCloudToken(token string) CloudOption {
	return func(c *CloudClient) { c.token = strings.TrimSpace(token) }
}

func NewCloudClient(opts ...CloudOption) *CloudClient {
	c := &CloudClient{
		baseURL: DefaultCloudBaseURL,
		http:    &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		timeout: defaultCloudTimeout,
		multiPV: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cloudPV struct {
	Moves string `json:"moves"`
	CP    *int   `json:"cp"`
	Mate  *int   `json:"mate"`
}

type cloudResponse struct {
	FEN    string    `json:"fen"`
	Depth  int       `json:"depth"`
	KNodes int       `json:"knodes"`
	PVs    []cloudPV `json:"pvs"`
	Error  string    `json:"error"`
}

// CloudEval returns the first principal variation's score. The score is
// White-relative as served by Lichess.
func (c *CloudClient) CloudEval(ctx context.Context, fen string) (Result, error) {
	q := url.Values{}
	q.Set("fen", fen)
	q.Set("multiPv", strconv.Itoa(c.multiPV))
	uri := c.baseURL + "/api/cloud-eval?" + q.Encode()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(uri)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return Result{}, fmt.Errorf("cloud eval request: %w", err)
	}

	status := resp.StatusCode()
	if status == fasthttp.StatusNotFound {
		return Result{}, ErrNotFound
	}
	if status < 200 || status >= 300 {
		return Result{}, fmt.Errorf("cloud eval error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
	}

	var payload cloudResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return Result{}, fmt.Errorf("decode cloud eval: %w", err)
	}
	if payload.Error != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, payload.Error)
	}
	if len(payload.PVs) == 0 {
		return Result{}, fmt.Errorf("%w: no principal variation", ErrNotFound)
	}
	pv := payload.PVs[0]
	score := Score{CP: pv.CP, Mate: pv.Mate}
	if pv.Mate != nil {
		score.CP = nil
	}
	if score.Empty() {
		return Result{}, fmt.Errorf("cloud eval: first pv has no score")
	}
	return Result{FEN: fen, Score: score, Source: SourceCloud, Depth: payload.Depth}, nil
}

func (c *CloudClient) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
