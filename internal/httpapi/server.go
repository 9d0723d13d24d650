package httpapi

import (
	"net/http"

	"authd/internal/account"
	"authd/internal/auth"
	"authd/internal/config"
)

type Server struct {
	cfg      config.Config
	accounts *account.Service
	gate     *auth.Gate
	mux      *http.ServeMux
}

func NewServer(cfg config.Config, accounts *account.Service, gate *auth.Gate) *Server {
	s := &Server{
		cfg:      cfg,
		accounts: accounts,
		gate:     gate,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = apiKeyMiddleware(s.gate, h)
	h = recoverMiddleware(h)
	h = requestIDMiddleware(h)
	h = loggingMiddleware(h)
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/{$}", s.handleRoot)
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/v1/signup", s.handleSignup)
	s.mux.HandleFunc("/v1/login/email", s.handleEmailLogin)
	s.mux.HandleFunc("/v1/login/username", s.handleUsernameLogin)
	s.mux.HandleFunc("/v1/accounts/{username}", s.handleAccount)
	s.mux.HandleFunc("/v1/accounts/{username}/logout", s.handleLogout)
	s.mux.HandleFunc("/v1/accounts/{username}/recovery", s.handleRecovery)
}
