package dashboard

// Option configures a Service.
type Option func(*Service)

// WithLimit caps the number of methods loaded by Refresh. Zero loads all.
func WithLimit(limit int) Option {
	return func(s *Service) {
		s.limit = limit
	}
}

// WithMemoSize sets how many filtered trees are cached per dataset version.
func WithMemoSize(size int) Option {
	return func(s *Service) {
		s.memoSize = size
	}
}
