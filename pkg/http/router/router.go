package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/lintang-b-s/streetmap/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/streetmap/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/streetmap/pkg/http/server"
	"github.com/rs/cors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	_ "net/http/pprof"

	httpSwagger "github.com/swaggo/http-swagger"
)

const shutdownTimeout = 10 * time.Second

type API struct {
	log *zap.Logger
	hub *controllers.Hub
}

func NewAPI(log *zap.Logger) *API {
	return &API{log: log}
}

//	@title			streetmap API
//	@version		1.0
//	@description	Turn aware routing and courier pickup and delivery planning over an openstreetmap street network.

//	@contact.name	Lintang Birda Saputra
//	@contact.url	_
//	@contact.email	lintang.birda.saputra@mail.ugm.ac.id

//	@license.name	BSD License
//	@license.url	https://opensource.org/license/bsd-2-clause

// @host		localhost
// @BasePath	/api
func (api *API) Handler(
	useRateLimit bool,
	routingService controllers.RoutingService,
	courierService controllers.CourierService,
) http.Handler {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	router.GET("/doc/*any", swaggerHandler)

	router.Handler(http.MethodGet, "/debug/pprof/*item", http.DefaultServeMux)

	group := router_helper.NewRouteGroup(router, "/api")

	api.hub = controllers.NewHub(courierService, api.log)
	navigatorRoutes := controllers.New(routingService, courierService, api.hub, api.log)
	navigatorRoutes.Routes(group)

	mwChain := []alice.Constructor{corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Heartbeat("healthz"), Logger(api.log)}
	if useRateLimit {
		viper.SetDefault("RATE_LIMIT_RPS", 20)
		viper.SetDefault("RATE_LIMIT_BURST", 40)
		mwChain = append(mwChain, Limit(viper.GetFloat64("RATE_LIMIT_RPS"), viper.GetInt("RATE_LIMIT_BURST")))
	}
	return alice.New(mwChain...).Then(router)
}

// Run serves the API until ctx is canceled or the listener fails.
func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	useRateLimit bool,
	routingService controllers.RoutingService,
	courierService controllers.CourierService,
) error {
	api.log.Info("Run httprouter API")

	srv := http_server.New(ctx, api.Handler(useRateLimit, routingService, courierService), config)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		api.log.Info("HTTP server stopped", zap.Error(err))
		api.hub.RemoveAllSessions()
		return err
	case <-ctx.Done():
		api.log.Info("Context canceled, shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		api.hub.RemoveAllSessions()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
