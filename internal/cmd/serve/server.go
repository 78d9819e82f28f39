package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/emogo/journal-service/internal/config"
	"github.com/emogo/journal-service/internal/plugin/route/dashboard"
	"github.com/emogo/journal-service/internal/plugin/route/entries"
	"github.com/emogo/journal-service/internal/plugin/route/syncapi"
	routesystem "github.com/emogo/journal-service/internal/plugin/route/system"
	"github.com/emogo/journal-service/internal/plugin/route/uploads"
	"github.com/emogo/journal-service/internal/plugin/route/users"
	storemetrics "github.com/emogo/journal-service/internal/plugin/store/metrics"
	"github.com/emogo/journal-service/internal/reconcile"
	registrymedia "github.com/emogo/journal-service/internal/registry/media"
	registrymigrate "github.com/emogo/journal-service/internal/registry/migrate"
	registryroute "github.com/emogo/journal-service/internal/registry/route"
	registrystore "github.com/emogo/journal-service/internal/registry/store"
	"github.com/emogo/journal-service/internal/telemetry"
	"github.com/gin-gonic/gin"
)

// Server holds the running server and its subsystems.
type Server struct {
	Config          *config.Config
	Store           registrystore.JournalStore
	Videos          registrymedia.VideoStore
	Engine          *reconcile.Engine
	Router          *gin.Engine
	Port            int
	httpServer      *http.Server
	closeManagement func(context.Context) error
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.closeManagement != nil {
		_ = s.closeManagement(ctx)
	}
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.Store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// StartServer initializes all subsystems and starts the HTTP server.
// Use cfg.Listener.Port=0 for a random port; the bound port is Server.Port.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("Starting journal service",
		"httpPort", cfg.Listener.Port,
		"db", cfg.DatastoreType,
		"media", cfg.MediaType,
	)

	// Initialize Prometheus metrics with configured constant labels.
	metricsLabels, err := telemetry.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	telemetry.InitMetrics(metricsLabels)

	// Run migrations
	if err := registrymigrate.RunAll(ctx); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	// Initialize store
	storeLoader, err := registrystore.Select(cfg.DatastoreType)
	if err != nil {
		return nil, err
	}
	store, err := storeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	store = storemetrics.Wrap(store)

	// Initialize video store
	mediaLoader, err := registrymedia.Select(cfg.MediaType)
	if err != nil {
		return nil, err
	}
	videos, err := mediaLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}

	engine := reconcile.NewEngine(store)

	// Set up gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ManagementAccessLog {
		router.Use(telemetry.AccessLogMiddleware())
	} else {
		router.Use(telemetry.AccessLogMiddleware("/health", "/ready", "/metrics"))
	}
	router.Use(telemetry.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize))
	if cfg.CORSEnabled {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	// Mount main route plugins on the main router.
	for _, loader := range registryroute.MainRouteLoaders() {
		if err := loader(router); err != nil {
			return nil, fmt.Errorf("failed to load routes: %w", err)
		}
	}

	// Mount API routes
	entries.MountRoutes(router, store, cfg)
	syncapi.MountRoutes(router, engine)
	uploads.MountRoutes(router, videos)
	users.MountRoutes(router, store)
	dashboard.MountRoutes(router, store)

	// Mount management route plugins. If a dedicated management port is
	// configured, run them on a bare gin engine served by the management
	// server. Otherwise, mount them on the main router.
	var closeManagement func(context.Context) error
	if cfg.ManagementListenerEnabled {
		mgmtRouter := gin.New()
		mgmtRouter.Use(gin.Recovery())
		if cfg.ManagementAccessLog {
			mgmtRouter.Use(telemetry.AccessLogMiddleware())
		}
		for _, loader := range registryroute.ManagementRouteLoaders() {
			if err := loader(mgmtRouter); err != nil {
				return nil, fmt.Errorf("failed to load management routes: %w", err)
			}
		}
		_, closeManagement, err = startManagementServer(cfg.ManagementListener, mgmtRouter)
		if err != nil {
			return nil, fmt.Errorf("failed to start management server: %w", err)
		}
	} else {
		for _, loader := range registryroute.ManagementRouteLoaders() {
			if err := loader(router); err != nil {
				return nil, fmt.Errorf("failed to load management routes: %w", err)
			}
		}
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Listener.Port))
	if err != nil {
		return nil, fmt.Errorf("listen failed: %w", err)
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.Listener.ReadHeaderTimeout,
	}
	go func() {
		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
		}
	}()

	port := lis.Addr().(*net.TCPAddr).Port
	log.Info("Server listening", "port", port)

	routesystem.SetReadyCheck(store.Ping)
	routesystem.MarkReady()
	return &Server{
		Config:          cfg,
		Store:           store,
		Videos:          videos,
		Engine:          engine,
		Router:          router,
		Port:            port,
		httpServer:      httpServer,
		closeManagement: closeManagement,
	}, nil
}
