package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/carnival-games/carnival/internal/config"
	"github.com/carnival-games/carnival/internal/database"
	"github.com/carnival-games/carnival/internal/event"
	"github.com/carnival-games/carnival/internal/queue"
	"github.com/carnival-games/carnival/internal/stats"
)

const (
	metricActiveQueueStreams  = "ActiveQueueStreams"
	metricJoinRequestsCreated = "JoinRequestsCreated"
	metricActivePagerClients  = "ActivePagerClients"
	metricPagesSent           = "PagesSent"
)

type CarnivalApp struct {
	log            *log.Logger
	db             database.CarnivalRepository
	mux            *http.Server
	queue          *queue.Service
	pager          *event.Bus[database.PagerMessage]
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
}

func NewCarnivalApp(mux *http.ServeMux, logger *log.Logger, db database.CarnivalRepository,
	qs *queue.Service, pager *event.Bus[database.PagerMessage], su stats.StatsProvider, cfg *config.Config) *CarnivalApp {
	s := &CarnivalApp{
		log:            logger,
		db:             db,
		queue:          qs,
		pager:          pager,
		stats:          su,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	if su != nil {
		su.RegisterMetric(metricActiveQueueStreams)
		su.RegisterMetric(metricJoinRequestsCreated)
		su.RegisterMetric(metricActivePagerClients)
		su.RegisterMetric(metricPagesSent)
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)

	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("POST /api/officers", s.authMiddleware(s.createOfficer))

	mux.Handle("POST /api/games", s.authMiddleware(s.createGame))
	mux.Handle("GET /api/games/{id}", s.authMiddleware(s.getGame))
	mux.Handle("POST /api/games/{id}/sessions", s.authMiddleware(s.createSession))

	// game-client endpoints: consumed by embedded games and the scanner,
	// unauthenticated as in the kiosk deployment
	mux.HandleFunc("POST /api/games/{id}/join", s.joinGame)
	mux.HandleFunc("GET /api/games/{id}/queue", s.streamQueue)
	mux.HandleFunc("GET /api/games/{id}/queue/all", s.queueSnapshot)
	mux.HandleFunc("POST /api/games/{id}/ack", s.acknowledgeRequests)
	mux.HandleFunc("POST /api/games/{id}/finish", s.finishSession)
	mux.HandleFunc("GET /api/games/{id}/session", s.activeSession)

	mux.Handle("POST /api/players", s.authMiddleware(s.createPlayer))
	mux.Handle("GET /api/players/{id}", s.authMiddleware(s.getPlayer))
	mux.Handle("DELETE /api/players/{id}", s.authMiddleware(s.archivePlayer))
	mux.Handle("POST /api/players/{id}/join", s.authMiddleware(s.forceJoin))
	mux.Handle("POST /api/players/{id}/cancel", s.authMiddleware(s.cancelJoin))

	mux.Handle("GET /api/pager", s.authMiddleware(s.listPages))
	mux.Handle("POST /api/pager", s.authMiddleware(s.sendPage))
	mux.Handle("GET /api/pager/ws", s.authMiddleware(s.servePagerWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *CarnivalApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *CarnivalApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
