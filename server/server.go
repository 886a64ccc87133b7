package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/onboardhq/hr-assistant/assistant"
	"github.com/onboardhq/hr-assistant/internal/config"
	"github.com/onboardhq/hr-assistant/msgraph"
)

// Broker resolves tokens silently and clears them on logout. Implemented by
// *msgraph.Authenticator.
type Broker interface {
	IsAuthenticated(ctx context.Context) bool
	Logout() error
}

// FlowService drives device flows across stateless requests by flow id.
// Implemented by *authflow.Service.
type FlowService interface {
	Start(ctx context.Context) (string, *msgraph.DeviceFlow, error)
	Poll(ctx context.Context, flowID string) msgraph.PollResult
	ClearAll()
}

// ProfileClient fetches the signed-in user's profile.
type ProfileClient interface {
	GetUserProfile(ctx context.Context) (*msgraph.UserProfile, error)
}

// Ingestor indexes an uploaded document into the knowledge base.
type Ingestor interface {
	IngestFile(ctx context.Context, path string) (int, error)
}

type Server struct {
	env    string // Environment (e.g., "DEV", "production")
	mux    *http.ServeMux
	routes []string
	config config.Config

	broker   Broker
	flows    FlowService
	graph    ProfileClient
	agent    assistant.Assistant
	ingestor Ingestor
}

func New(cfg config.Config, broker Broker, flows FlowService, graph ProfileClient, agent assistant.Assistant, ingestor Ingestor) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		broker:   broker,
		flows:    flows,
		graph:    graph,
		agent:    agent,
		ingestor: ingestor,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s
}

// ServeHTTP applies CORS around the whole mux so preflight OPTIONS requests
// are answered even though routes are registered with method-scoped patterns.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.CorsMiddleware(s.mux.ServeHTTP)(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
