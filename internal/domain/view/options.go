package view

import "time"

// Option configures a Service.
type Option func(*Service)

// WithSearchDelay sets the quiet period before a typed search is applied.
func WithSearchDelay(d time.Duration) Option {
	return func(s *Service) {
		s.searchDelay = d
	}
}
