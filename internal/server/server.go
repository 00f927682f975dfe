package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"realestate/internal/config"
	"realestate/internal/middleware"
	"realestate/internal/modules/auth"
	"realestate/internal/modules/broker"
	"realestate/internal/modules/brokerapp"
	"realestate/internal/modules/events"
	jwtsvc "realestate/internal/pkg/jwt"
	"realestate/internal/pkg/response"
	"realestate/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	cfg    *config.Config
	db     *gorm.DB
	hub    *events.Hub
	router *gin.Engine
}

func New(cfg *config.Config, db *gorm.DB) *Server {
	s := &Server{
		cfg: cfg,
		db:  db,
		hub: events.NewHub(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) Hub() *events.Hub { return s.hub }

func (s *Server) buildRouter() *gin.Engine {
	userRepo := repository.NewUserRepository(s.db)
	applicationRepo := repository.NewBrokerApplicationRepository(s.db)
	resetRepo := repository.NewPasswordResetRepository(s.db)

	j := jwtsvc.New(s.cfg.JWTSecret, s.cfg.JWTAccessTTL)

	authService := auth.NewService(userRepo, resetRepo, j, auth.ResetConfig{
		Pepper: s.cfg.ResetTokenPepper,
		TTL:    s.cfg.ResetTokenTTL,
	})
	authHandler := auth.NewHandler(authService)
	brokerHandler := broker.NewHandler(broker.NewService(userRepo))
	eventsHandler := events.NewHandler(s.hub, j)

	applicationService := brokerapp.NewService(
		applicationRepo,
		userRepo,
		brokerapp.NewTxManager(s.db),
		s.hub,
		authService,
		s.cfg.ApproveMaxRetries,
	)
	applicationHandler := brokerapp.NewHandler(applicationService)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(s.cfg.CORSAllowedOrigins))

	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		// websocket handshake authenticates itself and must not be cut by the request timeout
		eventsHandler.RegisterRoutes(v1)

		api := v1.Group("", middleware.RequestTimeout(s.cfg.RequestTimeout))

		authHandler.RegisterPublicRoutes(api)
		applicationHandler.RegisterRoutes(api, middleware.Identify(j))

		protected := api.Group("", middleware.JWTAuth(j))
		{
			authHandler.RegisterProtectedRoutes(protected)
			brokerHandler.RegisterRoutes(protected)
			authHandler.RegisterAdminRoutes(protected.Group("/admin", middleware.AdminOnly()))
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "database unreachable")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("http server listening addr=%s env=%s", s.cfg.HTTPAddr, s.cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("http server shutting down")
	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
