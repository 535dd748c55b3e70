package server

type Option func(s *Server)

// WithPort sets the port the server listens on when the environment does not
// override it.
func WithPort(port string) Option {
	return func(s *Server) {
		s.port = port
	}
}
