package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "vet-clinic-records/docs" // registra la doc de swagger
	mem "vet-clinic-records/internal/adapters/storage/memory"
	"vet-clinic-records/internal/domain/attributes"
	"vet-clinic-records/internal/domain/owners"
	"vet-clinic-records/internal/middleware"
	"vet-clinic-records/internal/platform/logger"
	"vet-clinic-records/internal/ports/auth"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si no vienen, store in-memory (Owners y Tx deben venir juntos).
	Owners owners.Repository
	Tx     owners.TxManager

	Logger      logger.Logger
	CORSOrigins []string

	// MaxBodyBytes: límite del body de cada request. <= 0 = middleware.DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// NameMatcher: política de nombres duplicados. nil = case-insensitive.
	NameMatcher owners.NameMatcher
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))

	r.Use(middleware.AuthContext(opts.AuthVerifier, log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	repo, tx := opts.Owners, opts.Tx
	if repo == nil || tx == nil {
		store := mem.NewOwnerRepo()
		repo, tx = store, store
	}

	// Services por módulo
	ownersSvc := owners.NewService(repo, tx, log, owners.Options{NameMatcher: opts.NameMatcher})
	attrsSvc := attributes.NewService(ownersSvc, log)

	// Rutas por módulo
	owners.RegisterRoutes(r, ownersSvc)
	attributes.RegisterRoutes(r, attrsSvc)

	return r
}
