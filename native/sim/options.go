package sim

// Option configures a simulated Runtime.
type Option func(*config)

type config struct {
	limits   Limits
	seed     map[string]string
	strict   bool
	threadID func() int64
}

func defaultConfig() config {
	return config{
		limits: DefaultLimits(),
		seed:   map[string]string{},
	}
}

// WithLimits bounds the property table of every isolate.
func WithLimits(l Limits) Option {
	return func(c *config) {
		c.limits = l
	}
}

// WithProperties seeds every new isolate with the given properties, the way
// a JVM starts with java.* properties already set.
func WithProperties(props map[string]string) Option {
	return func(c *config) {
		for k, v := range props {
			c.seed[k] = v
		}
	}
}

// WithStrictThreads makes every call that takes a thread handle fail with
// UNATTACHED_THREAD when issued from an OS thread other than the one that
// attached it. Real runtimes crash or corrupt state in that case.
func WithStrictThreads() Option {
	return func(c *config) {
		c.strict = true
	}
}

// WithThreadID overrides how the calling OS thread is identified.
func WithThreadID(fn func() int64) Option {
	return func(c *config) {
		c.threadID = fn
	}
}
