package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"contratos.app/internal/artifact"
	"contratos.app/internal/auth"
	"contratos.app/internal/contract"
	"contratos.app/internal/dashboard"
	"contratos.app/internal/obs"
	"contratos.app/internal/stream"
	"contratos.app/internal/wizard"
)

const serviceName = "contratos-api"

// Pinger is satisfied by *sql.DB wrappers and Redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks the backing stores. Nil members are skipped.
type ReadyProbe struct {
	DB    Pinger
	Redis Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.Ping(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Deps are the collaborators the API serves. Archive and Events are optional.
type Deps struct {
	Auth      *auth.Service
	Contracts contract.Store
	Archive   *artifact.Archive
	Events    *stream.Stream
	Ready     readinessChecker
	Version   string
}

// API is the HTTP layer.
type API struct {
	auth      *auth.Service
	saver     wizard.Saver
	dashboard *dashboard.Service
	wizards   *wizard.Registry
	archive   *artifact.Archive
	events    *stream.Stream
	ready     readinessChecker
	version   string

	ratePerSec     float64
	rateBurst      int
	requestTimeout time.Duration
	maxBodyBytes   int64
	corsOrigin     string
	now            func() time.Time
}

// Option configures API.
type Option func(*API)

// WithRateLimit sets the per-client token bucket; perSecond 0 disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(a *API) {
		a.ratePerSec = perSecond
		a.rateBurst = burst
	}
}

// WithRequestTimeout bounds every request except the event stream.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *API) {
		if d > 0 {
			a.requestTimeout = d
		}
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

// WithCORSOrigin sets the allowed browser origin ("*" allows any).
func WithCORSOrigin(origin string) Option {
	return func(a *API) { a.corsOrigin = origin }
}

// WithClock overrides the time source of the dashboard filters.
func WithClock(fn func() time.Time) Option {
	return func(a *API) {
		if fn != nil {
			a.now = fn
		}
	}
}

func New(deps Deps, opts ...Option) (*API, error) {
	if deps.Auth == nil || deps.Contracts == nil {
		return nil, errors.New("httpapi: auth and contracts are required")
	}
	a := &API{
		auth:           deps.Auth,
		saver:          deps.Contracts,
		wizards:        wizard.NewRegistry(),
		archive:        deps.Archive,
		events:         deps.Events,
		ready:          deps.Ready,
		version:        deps.Version,
		ratePerSec:     20,
		rateBurst:      40,
		requestTimeout: 10 * time.Second,
		maxBodyBytes:   1 << 20,
		corsOrigin:     "*",
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.ready == nil {
		a.ready = ReadyProbe{}
	}
	if a.archive != nil {
		a.saver = a.archive.Wrap(deps.Contracts)
	}
	a.dashboard = dashboard.NewService(deps.Contracts, dashboard.WithClock(a.now))
	return a, nil
}

// Handler returns the fully wrapped router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, LoggingJSON, SecurityHeaders, CORS(a.corsOrigin))
	if a.ratePerSec > 0 {
		r.Use(RateLimit(a.ratePerSec, a.rateBurst))
	}
	r.Use(MaxBodyBytes(a.maxBodyBytes), Timeout(a.requestTimeout, "/v1/events"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Handle("/metrics", obs.Handler())

	r.Post("/v1/auth/signup", a.signUp)
	r.Post("/v1/auth/signin", a.signIn)
	r.Get("/v1/contract-types", a.contractTypes)
	r.Post("/v1/preview", a.preview)

	r.Group(func(r chi.Router) {
		r.Use(a.requireSession)

		r.Post("/v1/auth/signout", a.signOut)
		r.Get("/v1/auth/me", a.me)

		r.Route("/v1/wizard", func(r chi.Router) {
			r.Post("/", a.openWizard)
			r.Get("/", a.wizardState)
			r.Delete("/", a.discardWizard)
			r.Patch("/draft", a.editDraft)
			r.Post("/next", a.wizardNext)
			r.Post("/back", a.wizardBack)
			r.Post("/finish", a.finishWizard)
		})

		r.Route("/v1/contracts", func(r chi.Router) {
			r.Get("/", a.listContracts)
			r.Get("/export", a.exportContracts)
			r.Get("/{id}", a.getContract)
			r.Delete("/{id}", a.deleteContract)
			r.Get("/{id}/artifact", a.contractArtifact)
		})

		r.Get("/v1/events", a.Stream)
	})

	return obs.Instrument(r)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
