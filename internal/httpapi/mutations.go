package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mesabook/cuadre/internal/meta"
	"github.com/mesabook/cuadre/internal/service/reconcile"
)

// POST /v1/cuadre/{zreportID}/confirm
func (s *Server) confirmItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "zreportID")
	if !ok {
		return
	}
	item, err := s.svc.Confirm(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toItemResponse(item))
}

// POST /v1/cuadre/{zreportID}/pending
func (s *Server) markPending(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "zreportID")
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req markPendingRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	item, err := s.svc.MarkPending(r.Context(), id, req.Reason)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toItemResponse(item))
}

// DELETE /v1/cuadre/{zreportID}/pending
func (s *Server) clearPending(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "zreportID")
	if !ok {
		return
	}
	item, err := s.svc.ClearPending(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toItemResponse(item))
}

// POST /v1/cuadre/{zreportID}/adjustments
func (s *Server) createAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "zreportID")
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req createAdjustmentRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	adj, item, err := s.svc.CreateAdjustment(r.Context(), reconcile.AdjustmentInput{
		ZReportID:   id,
		Kind:        req.Kind,
		AmountMinor: req.AmountMinor,
		Description: req.Description,
		Metadata:    meta.New(req.Metadata),
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, struct {
		Adjustment adjustmentResponse `json:"adjustment"`
		Item       itemResponse       `json:"item"`
	}{Adjustment: toAdjustmentResponse(adj), Item: toItemResponse(item)})
}

// DELETE /v1/adjustments/{id}
// Deleting an id that is already gone still returns 204.
func (s *Server) deleteAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.DeleteAdjustment(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
