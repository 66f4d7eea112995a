package http

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	http_router "github.com/lintang-b-s/streetmap/pkg/http/router"
	"github.com/lintang-b-s/streetmap/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/streetmap/pkg/http/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
	g   *errgroup.Group
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use starts the API in the background; Wait returns its error after ctx is canceled.
func (s *Server) Use(
	ctx context.Context,
	log *zap.Logger,

	useRateLimit bool,
	routingService controllers.RoutingService,
	courierService controllers.CourierService,
) (*Server, error) {
	config := http_server.LoadConfig()

	server := http_router.NewAPI(log)

	g, ctx := errgroup.WithContext(ctx)
	s.g = g

	g.Go(func() error {
		return server.Run(
			ctx, config,
			useRateLimit, routingService, courierService,
		)
	})

	return s, nil
}

func (s *Server) Wait() error {
	if s.g == nil {
		return nil
	}
	return s.g.Wait()
}

// GracefulShutdown blocks until SIGINT or SIGTERM.
func GracefulShutdown() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}
