package matchmaking

// Option configures a Service during New.
type Option func(*Service)

// WithConfig replaces the environment-loaded configuration. Mostly useful in
// tests.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}
