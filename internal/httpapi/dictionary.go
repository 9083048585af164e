package httpapi

import (
	"net/http"

	"github.com/mesabook/cuadre/internal/dictionary"
)

// GET /v1/dictionary/payment-methods
func (s *Server) getPaymentMethods(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, struct {
		Items []dictionary.MethodDef `json:"items"`
	}{Items: dictionary.PaymentMethods()})
}

// GET /v1/dictionary/adjustment-kinds
func (s *Server) getAdjustmentKinds(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, struct {
		Items []dictionary.KindDef `json:"items"`
	}{Items: dictionary.AdjustmentKinds()})
}
