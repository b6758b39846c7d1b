package dedupe

// Option applies a configuration option to the in-memory Deduper.
type Option func(*keyTracker)

// WithMaxSize sets how many keys are remembered. Zero or negative means
// unbounded.
func WithMaxSize(n int) Option {
	return func(d *keyTracker) {
		d.maxKeys = n
	}
}
