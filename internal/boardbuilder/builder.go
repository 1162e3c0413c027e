package boardbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
	corechess "github.com/park285/Cheese-Analysis-Board/internal/chess"
	"github.com/park285/Cheese-Analysis-Board/internal/config"
	"github.com/park285/Cheese-Analysis-Board/internal/evalcache"
	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
	"github.com/park285/Cheese-Analysis-Board/internal/events"
	"github.com/park285/Cheese-Analysis-Board/internal/explorer"
	"github.com/park285/Cheese-Analysis-Board/internal/msgcat"
	"github.com/park285/Cheese-Analysis-Board/internal/render"
	"github.com/park285/Cheese-Analysis-Board/internal/server"
	"github.com/park285/Cheese-Analysis-Board/internal/session"
	"go.uber.org/zap"
)

type Deps struct {
	Session  *session.Session
	Server   *server.Server
	Bus      *events.Bus
	Pipeline *evaluation.Pipeline
	Cache    *evalcache.Cache
	Engine   *corechess.Engine
	Selector *explorer.Selector
}

// New wires the analysis board from configuration. Optional backends
// (Redis, Postgres, Badger, Stockfish, Polyglot book) are skipped when
// their setting is empty.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	d.Cache = evalcache.New(
		evalcache.WithStore(evalcache.NewTiered(stores...)),
		evalcache.WithLogger(logger.Named("evalcache")),
	)

	pipeOpts := []evaluation.PipelineOption{
		evaluation.WithRemote(evaluation.NewCloudClient(
			evaluation.WithCloudBaseURL(cfg.CloudEvalBaseURL),
			evaluation.WithCloudTimeout(cfg.CloudEvalTimeout()),
			evaluation.WithCloudToken(cfg.LichessToken),
		)),
		evaluation.WithRemoteTimeout(cfg.CloudEvalTimeout()),
		evaluation.WithLocalTimeout(cfg.LocalEvalTimeout()),
		evaluation.WithPipelineLogger(logger.Named("pipeline")),
	}
	if strings.TrimSpace(cfg.StockfishPath) != "" {
		d.Engine, err = corechess.NewEngine(corechess.EngineConfig{
			BinaryPath:          cfg.StockfishPath,
			Threads:             cfg.StockfishThreads,
			HashMB:              cfg.StockfishHashMB,
			MinimumThinkingTime: cfg.StockfishMinThinkMS,
			Depth:               cfg.StockfishDepth,
			Capacity:            cfg.StockfishPoolSize,
			Logger:              logger.Named("engine"),
		})
		if err != nil {
			return nil, fmt.Errorf("init engine: %w", err)
		}
		pipeOpts = append(pipeOpts, evaluation.WithLocal(d.Engine))
	} else {
		logger.Info("local_engine_disabled", zap.String("reason", "STOCKFISH_PATH not set"))
	}
	d.Pipeline = evaluation.NewPipeline(d.Cache, pipeOpts...)

	sources := []explorer.Source{explorer.NewClient(
		explorer.WithBaseURL(cfg.ExplorerBaseURL),
		explorer.WithDatabase(cfg.ExplorerDatabase),
		explorer.WithSpeeds(cfg.ExplorerSpeeds...),
		explorer.WithRatings(cfg.ExplorerRatings...),
		explorer.WithToken(cfg.LichessToken),
		explorer.WithTimeout(cfg.ExplorerTimeout()),
	)}
	if path := strings.TrimSpace(cfg.PolyglotBookPath); path != "" {
		book, berr := explorer.LoadBookFile(path)
		if berr != nil {
			return nil, fmt.Errorf("load polyglot book: %w", berr)
		}
		sources = append(sources, book)
	}
	d.Selector = explorer.NewSelector(
		explorer.NewChain(logger.Named("explorer"), sources...),
		explorer.WithSelectorLogger(logger.Named("selector")),
	)

	d.Bus = events.NewBus(logger.Named("events"))

	sessOpts, err := sessionOptions(cfg)
	if err != nil {
		return nil, err
	}
	sessOpts = append(sessOpts,
		session.WithSelector(d.Selector),
		session.WithEvaluator(d.Pipeline),
		session.WithSink(d.Bus),
		session.WithLogger(logger.Named("session")),
		session.WithAutoMoveTimeout(cfg.ExplorerTimeout()),
	)
	d.Session, err = session.New(ctx, sessOpts...)
	if err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Server = server.New(d.Session, d.Bus,
		server.WithLogger(logger.Named("http")),
		server.WithCatalog(catalog),
		server.WithRenderer(render.New(render.WithSquareSize(cfg.SquareSize))),
		server.WithOriginPatterns(cfg.OriginPatterns...),
	)

	ok = true
	return d, nil
}

func openStores(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) ([]evalcache.Store, error) {
	var stores []evalcache.Store
	fail := func(err error) ([]evalcache.Store, error) {
		for _, s := range stores {
			_ = s.Close()
		}
		return nil, err
	}
	if dir := strings.TrimSpace(cfg.BadgerDir); dir != "" {
		s, err := evalcache.OpenBadger(dir)
		if err != nil {
			return fail(fmt.Errorf("open badger: %w", err))
		}
		stores = append(stores, s)
	}
	if raw := strings.TrimSpace(cfg.RedisURL); raw != "" {
		s, err := evalcache.OpenRedis(ctx, raw, cfg.EvalCacheTTL())
		if err != nil {
			return fail(fmt.Errorf("open redis: %w", err))
		}
		stores = append(stores, s)
	}
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		s, err := evalcache.OpenPostgres(ctx, dsn)
		if err != nil {
			return fail(fmt.Errorf("open postgres: %w", err))
		}
		stores = append(stores, s)
	}
	logger.Info("eval_cache_tiers", zap.Int("count", len(stores)))
	return stores, nil
}

func sessionOptions(cfg *config.AppConfig) ([]session.Option, error) {
	promo, err := board.ParsePromotion(cfg.Promotion)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{
		session.WithPromotion(promo),
		session.WithPerspective(evaluation.ParsePerspective(cfg.EvalPerspective)),
		session.WithStartIndex(cfg.StartIndex),
	}
	if c := strings.TrimSpace(cfg.AutoColor); c != "" {
		color, err := board.ParseColor(c)
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithAutoColor(color))
	}
	return opts, nil
}

// Close releases everything New opened. Safe on a partially built Deps.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Session != nil {
		d.Session.Close()
	} else if d.Pipeline != nil {
		d.Pipeline.Close()
	}
	if d.Bus != nil {
		d.Bus.Close()
	}
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	if d.Cache != nil {
		errs = append(errs, d.Cache.Close())
	}
	return errors.Join(errs...)
}
