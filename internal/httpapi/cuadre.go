package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mesabook/cuadre/internal/cuadre"
)

// GET /v1/cuadre?from=YYYY-MM-DD&to=YYYY-MM-DD&status=todos
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := cuadre.ParseTradingDate(q.Get("from"))
	if err != nil {
		badRequest(w, "invalid from date, want YYYY-MM-DD")
		return
	}
	to, err := cuadre.ParseTradingDate(q.Get("to"))
	if err != nil {
		badRequest(w, "invalid to date, want YYYY-MM-DD")
		return
	}
	filter := cuadre.StatusFilter(q.Get("status"))
	items, err := s.svc.List(r.Context(), from, to, filter)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := listItemsResponse{Items: make([]itemResponse, 0, len(items))}
	for _, item := range items {
		out.Items = append(out.Items, toItemResponse(item))
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/cuadre/{zreportID}
func (s *Server) getDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "zreportID")
	if !ok {
		return
	}
	detail, err := s.svc.Detail(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toDetailResponse(detail))
}

// parseUUIDParam extracts and validates a UUID path parameter; writes 400 on failure.
func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
