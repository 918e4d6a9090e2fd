package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tiergate/internal/config"
	"tiergate/internal/http-server/handlers/apiv1"
	"tiergate/internal/http-server/handlers/errors"
	"tiergate/internal/http-server/handlers/web"
	"tiergate/internal/http-server/middleware/clientip"
	"tiergate/internal/http-server/middleware/ratelimit"
	"tiergate/internal/http-server/middleware/reqlog"
	"tiergate/internal/http-server/middleware/timeout"
	"tiergate/internal/http-server/session"
	"tiergate/internal/http-server/views"
	"tiergate/lib/sl"
)

const requestTimeout = 20 * time.Second

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	web.Core
	apiv1.Core
}

// New serves the site and the JSON API until the listener fails.
func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	renderer, err := views.New(views.Site{Name: conf.Site.Name, TelegramURL: conf.Site.TelegramURL})
	if err != nil {
		return err
	}
	env := web.Env{
		Sessions: session.NewManager(session.Config{
			Name:   conf.Session.Name,
			Secret: conf.Session.Secret,
			MaxAge: conf.Session.MaxAge,
			Secure: conf.Session.Secure,
		}),
		Views: renderer,
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      NewRouter(conf, log, handler, env),
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}

func NewRouter(conf *config.Config, log *slog.Logger, handler Handler, env web.Env) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(clientip.New())
	router.Use(reqlog.New(log))
	router.Use(middleware.Recoverer)
	router.Use(timeout.Timeout(requestTimeout))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	limiter := ratelimit.New(conf.RateLimit.RequestsPerMinute)

	router.Get("/", web.Home(log, handler, env))
	router.Get("/health", web.Health())
	router.Get("/view/{view}", web.Navigate(log, env))
	router.Post("/logout", web.Logout(log, env))
	router.Group(func(forms chi.Router) {
		forms.Use(limiter.Handler(web.TooManyRequests(log, env)))
		forms.Post("/register", web.Register(log, handler, env))
		forms.Post("/login", web.Login(log, handler, env))
	})

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(render.SetContentType(render.ContentTypeJSON))
		v1.Get("/tiers", apiv1.Tiers(log, handler))
		v1.Get("/me", apiv1.Me(log, handler, env.Sessions))
		v1.Get("/puzzle", apiv1.Puzzle(log, handler, env.Sessions))
		v1.With(limiter.Handler(apiv1.TooManyRequests(log))).
			Post("/register", apiv1.Register(log, handler, env.Sessions))
	})

	return router
}
