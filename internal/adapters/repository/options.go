package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithBaseGamerscore sets the gamerscore earned before the session started.
func WithBaseGamerscore(base int64) Option {
	return func(s *MemoryStore) {
		if base > 0 {
			s.baseGamerscore = base
		}
	}
}
