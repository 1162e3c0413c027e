package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"go.uber.org/zap"
)

var (
	ErrRemoteEvaluation = errors.New("remote evaluation failed")
	ErrLocalEvaluation  = errors.New("local evaluation failed")
)

const (
	defaultRemoteTimeout = 3 * time.Second
	defaultLocalTimeout  = 30 * time.Second
)

type Remote interface {
	CloudEval(ctx context.Context, fen string) (Result, error)
}

type Local interface {
	Analyze(ctx context.Context, fen string) (Result, error)
}

// Cache stores finished evaluations. Peek must not block: it only consults
// memory. Get may read through to slower backing stores.
type Cache interface {
	Peek(fen string) (Result, bool)
	Get(ctx context.Context, fen string) (Result, bool)
	Put(ctx context.Context, res Result)
}

// Request asks for the evaluation of one position. Generation is an opaque
// tag echoed back on delivery.
type Request struct {
	FEN        string
	Generation uint64
	Mover      board.Color
}

type Outcome struct {
	Request Request
	Result  Result
	Err     error
}

type DeliverFunc func(Outcome)

type PipelineOption func(*Pipeline)

func WithRemote(r Remote) PipelineOption { return func(p *Pipeline) { p.remote = r } }
func WithLocal(l Local) PipelineOption   { return func(p *Pipeline) { p.local = l } }

func WithRemoteTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.remoteTimeout = d
		}
	}
}

func WithLocalTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.localTimeout = d
		}
	}
}

func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline evaluates positions on a single worker goroutine. Submit never
// blocks; a request that has not started yet is replaced by a newer one.
type Pipeline struct {
	cache         Cache
	remote        Remote
	local         Local
	remoteTimeout time.Duration
	localTimeout  time.Duration
	logger        *zap.Logger

	mu      sync.Mutex
	pending *Request
	deliver DeliverFunc
	started bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPipeline(cache Cache, opts ...PipelineOption) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		cache:         cache,
		remoteTimeout: defaultRemoteTimeout,
		localTimeout:  defaultLocalTimeout,
		logger:        zap.NewNop(),
		wake:          make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker. deliver runs on the worker goroutine.
func (p *Pipeline) Start(deliver DeliverFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.deliver = deliver
	go p.loop()
}

func (p *Pipeline) Close() {
	p.cancel()
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		<-p.done
	}
}

func (p *Pipeline) Submit(req Request) {
	p.mu.Lock()
	if p.pending != nil {
		p.logger.Debug("eval_request_superseded", zap.String("fen", p.pending.FEN))
	}
	p.pending = &req
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Lookup checks the in-memory cache only and never waits on a backing store.
func (p *Pipeline) Lookup(_ context.Context, fen string) (Result, bool) {
	if p.cache == nil {
		return Result{}, false
	}
	return p.cache.Peek(fen)
}

// Evaluate runs cache, remote and local tiers in order.
func (p *Pipeline) Evaluate(ctx context.Context, fen string) (Result, error) {
	if p.cache != nil {
		if res, ok := p.cache.Get(ctx, fen); ok {
			return res, nil
		}
	}

	var remoteErr error
	if p.remote != nil {
		res, err := p.evaluateRemote(ctx, fen)
		if err == nil {
			p.store(ctx, res)
			return res, nil
		}
		remoteErr = err
		p.logger.Info("eval_remote_fallback", zap.String("fen", fen), zap.Error(err))
	} else {
		remoteErr = fmt.Errorf("%w: no remote configured", ErrRemoteEvaluation)
	}

	if p.local == nil {
		return Result{}, fmt.Errorf("%w: no local engine configured (%v)", ErrLocalEvaluation, remoteErr)
	}
	res, err := p.evaluateLocal(ctx, fen)
	if err != nil {
		p.logger.Warn("eval_local_failed", zap.String("fen", fen), zap.Error(err))
		return Result{}, err
	}
	p.store(ctx, res)
	return res, nil
}

func (p *Pipeline) evaluateRemote(ctx context.Context, fen string) (Result, error) {
	rctx, cancel := context.WithTimeout(ctx, p.remoteTimeout)
	defer cancel()
	res, err := p.remote.CloudEval(rctx, fen)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRemoteEvaluation, err)
	}
	res.FEN = fen
	res.Source = SourceCloud
	return res, nil
}

func (p *Pipeline) evaluateLocal(ctx context.Context, fen string) (Result, error) {
	lctx, cancel := context.WithTimeout(ctx, p.localTimeout)
	defer cancel()
	res, err := p.local.Analyze(lctx, fen)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrLocalEvaluation, err)
	}
	if res.Score.Empty() {
		return Result{}, fmt.Errorf("%w: engine returned no score", ErrLocalEvaluation)
	}
	res.FEN = fen
	res.Source = SourceLocal
	return res, nil
}

func (p *Pipeline) store(ctx context.Context, res Result) {
	if p.cache != nil {
		p.cache.Put(ctx, res)
	}
}

func (p *Pipeline) take() (Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return Request{}, false
	}
	req := *p.pending
	p.pending = nil
	return req, true
}

func (p *Pipeline) loop() {
	defer close(p.done)
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.wake:
		}
		req, ok := p.take()
		if !ok {
			continue
		}
		start := time.Now()
		res, err := p.Evaluate(p.ctx, req.FEN)
		if p.ctx.Err() != nil {
			return
		}
		p.logger.Debug("eval_done",
			zap.String("fen", req.FEN),
			zap.Uint64("generation", req.Generation),
			zap.String("source", string(res.Source)),
			zap.Duration("took", time.Since(start)),
			zap.Error(err),
		)
		if p.deliver != nil {
			p.deliver(Outcome{Request: req, Result: res, Err: err})
		}
	}
}
