// Package pipeline runs generation requests through the rim stages with
// caching, bounded concurrency and a compute budget.
package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/megashaper/shaper/helpers/matter"
	"github.com/megashaper/shaper/internal/cache"
	"github.com/megashaper/shaper/internal/metrics"
	"github.com/megashaper/shaper/internal/pool"
	"github.com/megashaper/shaper/rim"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/megashaper/shaper/internal/pipeline"

// Config tunes the generation stages.
type Config struct {
	ComputeTimeout time.Duration `yaml:"compute_timeout" json:"compute_timeout" env:"COMPUTE_TIMEOUT"`
	MaxCells       int           `yaml:"max_cells" json:"max_cells" env:"MAX_CELLS"`
	TireCells      int           `yaml:"tire_cells" json:"tire_cells" env:"TIRE_CELLS"`
	CheckCells     int           `yaml:"check_cells" json:"check_cells" env:"CHECK_CELLS"`
	// CompensateShrinkage enlarges holes by the PLA shrinkage model.
	CompensateShrinkage bool `yaml:"compensate_shrinkage" json:"compensate_shrinkage" env:"COMPENSATE_SHRINKAGE"`
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		ComputeTimeout: 60 * time.Second,
		MaxCells:       rim.DefaultMaxCells,
		TireCells:      rim.DefaultTireCells,
		CheckCells:     rim.DefaultCheckCells,
	}
}

// Result is the successful response body.
type Result struct {
	RimGeo  string `json:"rim_geo"`
	Message string `json:"message"`
}

// entry is the cached form of a Result.
type entry struct {
	STL     []byte `json:"stl"`
	Message string `json:"message"`
}

// Pipeline generates meshes for parameter records.
type Pipeline struct {
	cfg       Config
	cache     *cache.Cache
	pool      *pool.Pool
	metrics   *metrics.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
	assembler *rim.Assembler
	exporter  *rim.Exporter

	// OnTransition, when set, observes every state change. It is called from
	// the request goroutine and from the computation goroutine.
	OnTransition func(Transition)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records generation metrics on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracerProvider traces stages with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(tracerName) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline. A nil cache or pool gets an unbacked default.
func New(cfg Config, c *cache.Cache, wp *pool.Pool, opts ...Option) *Pipeline {
	def := DefaultConfig()
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = def.ComputeTimeout
	}
	if cfg.TireCells <= 0 {
		cfg.TireCells = def.TireCells
	}
	p := &Pipeline{
		cfg:    cfg,
		cache:  c,
		pool:   wp,
		tracer: otel.Tracer(tracerName),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "pipeline"))
	if p.cache == nil {
		p.cache = cache.New(nil, p.logger)
	}
	if p.pool == nil {
		p.pool = pool.New(pool.DefaultConfig())
	}
	p.assembler = &rim.Assembler{CheckCells: cfg.CheckCells, MaxCells: cfg.MaxCells, Logger: p.logger}
	p.exporter = &rim.Exporter{MaxCells: cfg.MaxCells, Logger: p.logger}
	return p
}

// Generate validates rec and returns its mesh, computing it unless an
// identical request was served before or is being computed. Errors are
// *rim.Error values carrying the kind and component that failed.
func (p *Pipeline) Generate(ctx context.Context, requestID string, rec rim.Record) (*Result, error) {
	start := time.Now()
	r := &run{id: requestID, hook: p.OnTransition}
	ctx, span := p.tracer.Start(ctx, "rim.generate", trace.WithAttributes(attribute.String("request.id", requestID)))
	defer span.End()
	log := p.logger.With(zap.String("request_id", requestID))

	res, v, err := p.generate(ctx, r, rec)
	part, family := labels(v)
	span.SetAttributes(attribute.String("rim.part", part), attribute.String("rim.family", family))
	outcome := "ok"
	if err != nil {
		outcome = string(rim.KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		if rim.KindOf(err) == rim.KindNonManifold || rim.KindOf(err) == rim.KindInternal {
			log.Error("generation failed", zap.String("part", part), zap.Error(err))
		} else {
			log.Info("generation rejected", zap.String("part", part), zap.Error(err))
		}
	} else {
		log.Info("generation done", zap.String("part", part), zap.String("family", family),
			zap.Duration("duration", time.Since(start)))
	}
	if p.metrics != nil {
		p.metrics.RecordGeneration(part, family, outcome, time.Since(start))
	}
	return res, err
}

func (p *Pipeline) generate(ctx context.Context, r *run, rec rim.Record) (*Result, rim.Validated, error) {
	var v rim.Validated
	err := p.stage(ctx, "validate", func(context.Context) (err error) {
		v, err = rim.Validate(rec)
		return err
	})
	if err != nil {
		return nil, v, r.fail(err)
	}
	r.to(Validated, false, nil)

	key := p.key(rec)
	data, outcome, err := p.cache.Do(ctx, key, func() ([]byte, error) {
		return p.compute(ctx, r, v)
	})
	if p.metrics != nil {
		p.metrics.RecordCache(string(outcome))
	}
	if err != nil {
		return nil, v, r.fail(p.mapError(err))
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, v, r.fail(rim.Wrap(err, rim.KindInternal, rim.CompOrchestrator, "decoding cached mesh"))
	}
	if outcome != cache.OutcomeMiss {
		r.to(Exported, true, nil)
	}
	r.to(Responded, outcome != cache.OutcomeMiss, nil)
	return &Result{RimGeo: base64.StdEncoding.EncodeToString(e.STL), Message: e.Message}, v, nil
}

// compute runs the geometry stages on a pool slot under the compute budget.
// It is detached from the request's cancellation so a finished mesh still
// reaches the cache for later requests.
func (p *Pipeline) compute(ctx context.Context, r *run, v rim.Validated) ([]byte, error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.ComputeTimeout)
	defer cancel()
	var out []byte
	err := p.pool.Run(cctx, func(ctx context.Context) error {
		if p.metrics != nil {
			p.metrics.SetPoolActive(p.pool.Stats().Active)
			defer func() { p.metrics.SetPoolActive(p.pool.Stats().Active - 1) }()
		}
		var err error
		switch d := v.Design.(type) {
		case rim.RimDesign:
			out, err = p.buildRim(ctx, r, d, v.Warnings)
		case rim.TireDesign:
			out, err = p.buildTire(ctx, r, d, v.Warnings)
		default:
			err = &rim.Error{Kind: rim.KindInternal, Component: rim.CompOrchestrator, Msg: fmt.Sprintf("unhandled design %T", v.Design)}
		}
		return err
	})
	if err != nil {
		return nil, p.mapError(err)
	}
	return out, nil
}

func (p *Pipeline) buildRim(ctx context.Context, r *run, d rim.RimDesign, warnings []string) ([]byte, error) {
	var prof *rim.Profile
	err := p.stage(ctx, "profile", func(context.Context) (err error) {
		prof, err = rim.BuildProfile(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.to(ProfileBuilt, false, nil)

	var fs rim.FeatureSet
	err = p.stage(ctx, "features", func(context.Context) (err error) {
		var opts rim.FeatureOptions
		if p.cfg.CompensateShrinkage {
			opts.Material = &matter.PLA
		}
		fs, err = rim.GenerateFeatures(d, prof, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.to(FeaturesGenerated, false, nil)

	var solid *rim.Solid
	err = p.stage(ctx, "assemble", func(ctx context.Context) (err error) {
		solid, err = p.assembler.Assemble(ctx, prof, fs)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.to(Assembled, false, nil)

	var m *rim.MeshResult
	err = p.stage(ctx, "export", func(ctx context.Context) (err error) {
		m, err = p.exporter.Export(ctx, solid, d.Print)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.to(Exported, false, nil)
	if p.metrics != nil {
		p.metrics.RecordMesh(string(rim.PartRim), m.Stats.Triangles)
	}
	return encode(m, rim.StatusMessage(d, fs, m, warnings))
}

// buildTire revolves the tire band without features at a fixed resolution.
func (p *Pipeline) buildTire(ctx context.Context, r *run, d rim.TireDesign, warnings []string) ([]byte, error) {
	var prof *rim.Profile
	err := p.stage(ctx, "profile", func(context.Context) (err error) {
		prof, err = rim.BuildTireProfile(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.to(ProfileBuilt, false, nil)
	r.to(FeaturesGenerated, false, nil)

	var solid *rim.Solid
	err = p.stage(ctx, "assemble", func(ctx context.Context) (err error) {
		solid, err = p.assembler.Assemble(ctx, prof, rim.FeatureSet{})
		return err
	})
	if err != nil {
		return nil, err
	}
	r.to(Assembled, false, nil)

	var m *rim.MeshResult
	err = p.stage(ctx, "export", func(ctx context.Context) (err error) {
		m, err = p.exporter.ExportCells(ctx, solid, p.cfg.TireCells)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.to(Exported, false, nil)
	if p.metrics != nil {
		p.metrics.RecordMesh(string(rim.PartTire), m.Stats.Triangles)
	}
	return encode(m, rim.StatusMessage(d, rim.FeatureSet{}, m, warnings))
}

// stage runs fn in its own span and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "rim."+name)
	defer span.End()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(rim.KindOf(err)))
		span.SetAttributes(attribute.String("rim.component", string(rim.ComponentOf(err))))
	}
	if p.metrics != nil {
		p.metrics.RecordStage(name, time.Since(start))
	}
	return err
}

// mapError turns pool and context failures into rim errors. Stage errors
// pass through unchanged.
func (p *Pipeline) mapError(err error) error {
	if err == nil {
		return nil
	}
	var re *rim.Error
	if errors.As(err, &re) {
		return err
	}
	switch {
	case errors.Is(err, pool.ErrPoolFull), errors.Is(err, pool.ErrPoolClosed):
		if p.metrics != nil {
			p.metrics.RecordPoolRejection()
		}
		return &rim.Error{Kind: rim.KindOverloaded, Component: rim.CompOrchestrator, Msg: "too many concurrent generations", Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &rim.Error{Kind: rim.KindTimeout, Component: rim.CompOrchestrator, Msg: "request abandoned before the mesh was ready", Err: err}
	}
	return rim.Wrap(err, rim.KindInternal, rim.CompOrchestrator, "")
}

// key identifies a request together with the settings that change its mesh.
func (p *Pipeline) key(rec rim.Record) string {
	return fmt.Sprintf("v2:%d:%d:%t:%s", p.cfg.MaxCells, p.cfg.TireCells, p.cfg.CompensateShrinkage, rec.Key())
}

func encode(m *rim.MeshResult, msg string) ([]byte, error) {
	b, err := json.Marshal(entry{STL: m.STL, Message: msg})
	if err != nil {
		return nil, rim.Wrap(err, rim.KindInternal, rim.CompOrchestrator, "encoding mesh")
	}
	return b, nil
}

func labels(v rim.Validated) (part, family string) {
	switch d := v.Design.(type) {
	case rim.RimDesign:
		return string(rim.PartRim), d.Style.Family()
	case rim.TireDesign:
		return string(rim.PartTire), "none"
	}
	return "unknown", "unknown"
}
