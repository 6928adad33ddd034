package scraper

type options struct {
	parse   ParseFunc
	layout  Layout
	metrics *Metrics
}

// Option configures page fetchers, estimators and extractors.
type Option func(*options)

// WithParser sets the document parser. Defaults to the goquery parser.
func WithParser(parse ParseFunc) Option {
	return func(o *options) {
		o.parse = parse
	}
}

// WithLayout overrides the page template selectors.
func WithLayout(layout Layout) Option {
	return func(o *options) {
		o.layout = layout
	}
}

// WithMetrics reports outcomes to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func applyOptions(opts []Option) options {
	o := options{
		parse:  defaultParse,
		layout: DefaultLayout(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
