package repository

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/manojoshi/querykit/filter"
)

// Opt configures Paginate and Repository. Options that make no sense for
// the receiver are ignored (Paginate has no default filters).
type Opt interface {
	apply(*settings)
}

type settings struct {
	defaults []filter.Condition
	logger   *zap.Logger
	tracer   trace.Tracer
	fallback bool
}

func newSettings(opts []Opt) settings {
	s := settings{
		logger: zap.NewNop(),
		tracer: otel.Tracer("querykit/repository"),
	}
	for _, o := range opts {
		o.apply(&s)
	}
	return s
}

// optFunc is the concrete Opt.
type optFunc func(*settings)

func (o optFunc) apply(s *settings) { o(s) }

// WithDefaultFilters scopes every query of a Repository (tenant, soft
// delete). Defaults are always AND-ed with caller filters.
func WithDefaultFilters(conds ...filter.Condition) Opt {
	return optFunc(func(s *settings) { s.defaults = append(s.defaults, conds...) })
}

func WithLogger(l *zap.Logger) Opt {
	return optFunc(func(s *settings) {
		if l != nil {
			s.logger = l
		}
	})
}

func WithTracer(tp trace.TracerProvider) Opt {
	return optFunc(func(s *settings) { s.tracer = tp.Tracer("querykit/repository") })
}

// WithInMemoryFallback lets a query the source rejects with
// store.ErrNotPushable run in process over every row, when the source can
// materialize them. Off by default: it loads the whole collection.
func WithInMemoryFallback() Opt {
	return optFunc(func(s *settings) { s.fallback = true })
}
