package cargoapi

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"
)

type RouterOpts struct {
	APIKey      string
	SwaggerPath string
}

// NewRouter собирает полный роутер api-бинаря.
func NewRouter(a *API, opts RouterOpts) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "api-key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Десктоп ретраит агрессивно; держим синк за лимитером.
	syncRL := NewRateLimiter(rate.Limit(5), 10)

	r.Get("/", a.Health)
	r.Get("/api/health", a.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(APIKey(opts.APIKey))

		r.With(syncRL.Limit).Post("/sync/order", a.SyncOrder)

		r.Get("/orders", a.ListOrders)
		r.Get("/orders/without-photos", a.WithoutPhotos)
		r.Get("/orders/without-docs", a.WithoutDocs)
		r.Get("/orders/{orderNumber}", a.GetOrder)

		r.Get("/events/today", a.EventsToday)
		r.Get("/events/upcoming", a.UpcomingEvents)

		r.Get("/statistics", a.Statistics)

		r.Get("/reports/order/{orderNumber}", a.OrderReport)
		r.Get("/reports/summary", a.SummaryReport)
	})

	if opts.SwaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, opts.SwaggerPath)
		})
		swaggerURL := "/swagger.json"
		if fi, err := os.Stat(opts.SwaggerPath); err == nil {
			swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		}
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	return r
}
