package transpile

// CountStarMode selects the attribute name emitted for COUNT(*).
type CountStarMode int

// CountStarMode values.
const (
	CountStarWildcard   CountStarMode = iota // <attribute name="*" aggregate="count" />
	CountStarPrimaryKey                      // <attribute name="<entity>id" aggregate="count" />
)

type options struct {
	countStar CountStarMode
}

// Option configures the forward transpiler.
type Option func(*options)

// WithCountStarAttribute sets how COUNT(*) is expressed.
func WithCountStarAttribute(mode CountStarMode) Option {
	return func(o *options) {
		o.countStar = mode
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
