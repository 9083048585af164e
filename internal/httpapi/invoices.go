package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// POST /v1/invoices/{id}/relocate
func (s *Server) relocateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req relocateInvoiceRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.ZReportID == uuid.Nil {
		badRequest(w, "zreport_id is required")
		return
	}
	out, err := s.svc.RelocateInvoice(r.Context(), id, req.ZReportID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	resp := relocationResponse{Target: toItemResponse(out.Target)}
	if out.Source != nil {
		src := toItemResponse(*out.Source)
		resp.Source = &src
	}
	toJSON(w, http.StatusOK, resp)
}

// POST /v1/cuadre/{zreportID}/invoices
func (s *Server) attachInvoices(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "zreportID")
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req attachInvoicesRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if len(req.InvoiceIDs) == 0 {
		badRequest(w, "invoice_ids is required")
		return
	}
	item, err := s.svc.AttachInvoices(r.Context(), id, req.InvoiceIDs)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toItemResponse(item))
}

// GET /v1/cuadre/{zreportID}/orphans
func (s *Server) listOrphans(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "zreportID")
	if !ok {
		return
	}
	invs, err := s.svc.OrphanInvoices(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]invoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvoiceResponse(inv))
	}
	toJSON(w, http.StatusOK, struct {
		Items []invoiceResponse `json:"items"`
	}{Items: out})
}

// GET /v1/cuadre/{zreportID}/adjacent
func (s *Server) listAdjacent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "zreportID")
	if !ok {
		return
	}
	invs, err := s.svc.AdjacentInvoices(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]invoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvoiceResponse(inv))
	}
	toJSON(w, http.StatusOK, struct {
		Items []invoiceResponse `json:"items"`
	}{Items: out})
}

// GET /v1/cuadre/{zreportID}/targets
func (s *Server) listTargets(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "zreportID")
	if !ok {
		return
	}
	zs, err := s.svc.RelocationTargets(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]zreportResponse, 0, len(zs))
	for _, z := range zs {
		out = append(out, toZReportResponse(z))
	}
	toJSON(w, http.StatusOK, struct {
		Items []zreportResponse `json:"items"`
	}{Items: out})
}
