package repository

// Default page bound for keyset queries.
const defaultMaxPageSize = 500

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithMaxPageSize caps the limit accepted by paged queries.
func WithMaxPageSize(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}
