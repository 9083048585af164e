// Package httpapi wires the HTTP surface of the cuadre service.
// It keeps handlers thin, delegating the reconciliation rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mesabook/cuadre/internal/service/reconcile"
)

// Server wires handlers and middleware using Chi.
// It composes read (repo) and write (writer) dependencies through the
// reconciliation service.
type Server struct {
	svc  reconcile.Service
	repo reconcile.Repo
	log  *slog.Logger
	rt   *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by basic request/response logging and panic recovery.
func New(repo reconcile.Repo, writer reconcile.Writer, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)
	if auth := authJWTFromEnv(); auth != nil {
		r.Use(auth)
	}

	s := &Server{
		svc:  reconcile.New(repo, writer),
		repo: repo,
		rt:   r,
		log:  logger,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints.
func (s *Server) routes() {
	// Reconciliation workspace (v1)
	s.rt.Get("/v1/cuadre", s.listItems)
	s.rt.Get("/v1/cuadre/{zreportID}", s.getDetail)
	s.rt.Post("/v1/cuadre/{zreportID}/confirm", s.confirmItem)
	s.rt.Post("/v1/cuadre/{zreportID}/pending", s.markPending)
	s.rt.Delete("/v1/cuadre/{zreportID}/pending", s.clearPending)
	s.rt.Post("/v1/cuadre/{zreportID}/adjustments", s.createAdjustment)
	s.rt.Delete("/v1/adjustments/{id}", s.deleteAdjustment)
	// Invoice workflows
	s.rt.Post("/v1/invoices/{id}/relocate", s.relocateInvoice)
	s.rt.Post("/v1/cuadre/{zreportID}/invoices", s.attachInvoices)
	s.rt.Get("/v1/cuadre/{zreportID}/orphans", s.listOrphans)
	s.rt.Get("/v1/cuadre/{zreportID}/adjacent", s.listAdjacent)
	s.rt.Get("/v1/cuadre/{zreportID}/targets", s.listTargets)
	// Dictionaries for the UI
	s.rt.Get("/v1/dictionary/payment-methods", s.getPaymentMethods)
	s.rt.Get("/v1/dictionary/adjustment-kinds", s.getAdjustmentKinds)
	// Health + metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
