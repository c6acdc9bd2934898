package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/lintang-b-s/graphcut/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/graphcut/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/graphcut/pkg/http/server"
	"github.com/rs/cors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "net/http/pprof"
)

type API struct {
	log     *zap.Logger
	hub     *controllers.Hub
	limiter *ipRateLimiter
}

func NewAPI(log *zap.Logger) *API {
	return &API{log: log}
}

//	@title			graphcut API
//	@version		1.0
//	@description	Energy minimization of labeling problems with graph cuts (alpha-expansion, alpha-beta swap).

//	@contact.name	Lintang Birda Saputra
//	@contact.url	_
//	@contact.email	lintang.birda.saputra@mail.ugm.ac.id

//	@license.name	BSD License
//	@license.url	https://opensource.org/license/bsd-2-clause

// @host		localhost
// @BasePath	/api
func (api *API) Handler(useRateLimit bool, solverService controllers.SolverService) http.Handler {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	router.GET("/doc/*any", swaggerHandler)

	router.Handler(http.MethodGet, "/debug/pprof/*item", http.DefaultServeMux)

	group := router_helper.NewRouteGroup(router, "/api")

	api.hub = controllers.NewHub(solverService, api.log)
	solverRoutes := controllers.New(solverService, api.hub, api.log)
	solverRoutes.Routes(group)

	mwChain := []alice.Constructor{corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Heartbeat("healthz"), Logger(api.log)}
	if useRateLimit {
		viper.SetDefault("API_RATE_LIMIT", 10.0)
		viper.SetDefault("API_RATE_BURST", 20)
		api.limiter = newIPRateLimiter(viper.GetFloat64("API_RATE_LIMIT"), viper.GetInt("API_RATE_BURST"))
		mwChain = append(mwChain, api.limiter.Limit)
	}
	return alice.New(mwChain...).Then(router)
}

func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	useRateLimit bool,
	solverService controllers.SolverService,
) error {
	api.log.Info("Run httprouter API")

	srv := http_server.New(ctx, api.Handler(useRateLimit, solverService), config)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	var evict <-chan time.Time
	if api.limiter != nil {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		evict = ticker.C
	}

	for {
		select {
		case err := <-serverErr:
			api.log.Info("HTTP server stopped", zap.Error(err))
			api.hub.RemoveAll()
			return err

		case now := <-evict:
			api.limiter.evict(now, 3*time.Minute)

		case <-ctx.Done():
			api.log.Info("Context canceled, shutting down server")
			api.hub.RemoveAll()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := srv.Shutdown(shutdownCtx)
			cancel()
			if err != nil {
				return err
			}
			return ctx.Err()
		}
	}
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
