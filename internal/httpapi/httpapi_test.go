package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mesabook/cuadre/internal/cuadre"
	"github.com/mesabook/cuadre/internal/storage/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, store, logger), store
}

func tradingDay(t *testing.T) time.Time {
	t.Helper()
	d, err := cuadre.ParseTradingDate("2025-03-10")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func seedDay(t *testing.T, store *memory.Store, declaredMinor int64, invoiceMinors ...int64) cuadre.ZReport {
	t.Helper()
	date := tradingDay(t)
	z := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(declaredMinor), DocumentRef: "Z-0001"}
	store.SeedZReport(z)
	zid := z.ID
	for i, m := range invoiceMinors {
		store.SeedInvoice(cuadre.Invoice{
			ID:            uuid.New(),
			Date:          date,
			IssuedAt:      date.Add(time.Duration(12+i) * time.Hour),
			Amount:        cuadre.AmountFromMinor(m),
			PaymentMethod: "tarjeta",
			ZReportID:     &zid,
		})
	}
	return z
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, rec.Body.String())
	}
}

func TestListItems(t *testing.T) {
	srv, store := newTestServer(t)
	seedDay(t, store, 8500, 5200, 3300)

	rec := doJSON(t, srv, http.MethodGet, "/v1/cuadre?from=2025-03-10&to=2025-03-10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", rec.Code, rec.Body.String())
	}
	var out listItemsResponse
	decodeInto(t, rec, &out)
	if len(out.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(out.Items))
	}
	item := out.Items[0]
	if item.State != cuadre.StateCuadradoAuto {
		t.Fatalf("state = %s, want cuadrado_auto", item.State)
	}
	if item.Invoiced != "85.00" || item.Declared != "85.00" || item.Difference != "0.00" {
		t.Fatalf("unexpected formatted amounts: %+v", item)
	}
	if item.InvoiceCount != 2 {
		t.Fatalf("invoice_count = %d, want 2", item.InvoiceCount)
	}
}

func TestListItemsBadQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{
		"/v1/cuadre",
		"/v1/cuadre?from=2025-03-10",
		"/v1/cuadre?from=10/03/2025&to=2025-03-10",
	} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", path, rec.Code)
		}
	}

	rec := doJSON(t, srv, http.MethodGet, "/v1/cuadre?from=2025-03-10&to=2025-03-10&status=rarito", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad filter: status = %d, want 400", rec.Code)
	}
}

func TestGetDetail(t *testing.T) {
	srv, store := newTestServer(t)
	z := seedDay(t, store, 9000, 8500)

	rec := doJSON(t, srv, http.MethodGet, "/v1/cuadre/"+z.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", rec.Code, rec.Body.String())
	}
	var out detailResponse
	decodeInto(t, rec, &out)
	if out.Item.State != cuadre.StatePropuesta {
		t.Fatalf("state = %s, want propuesta", out.Item.State)
	}
	if len(out.Invoices) != 1 || len(out.Adjustments) != 0 {
		t.Fatalf("invoices=%d adjustments=%d", len(out.Invoices), len(out.Adjustments))
	}
	if out.Invoices[0].Amount != "85.00" {
		t.Fatalf("invoice amount = %s", out.Invoices[0].Amount)
	}

	if rec := doJSON(t, srv, http.MethodGet, "/v1/cuadre/"+uuid.NewString(), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status = %d, want 404", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodGet, "/v1/cuadre/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status = %d, want 400", rec.Code)
	}
}

func TestCreateAdjustmentFlow(t *testing.T) {
	srv, store := newTestServer(t)
	z := seedDay(t, store, 9000, 8500)

	rec := doJSON(t, srv, http.MethodPost, "/v1/cuadre/"+z.ID.String()+"/adjustments", createAdjustmentRequest{
		Kind:        cuadre.AdjustmentPositive,
		AmountMinor: 500,
		Description: "propina en efectivo",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body=%s)", rec.Code, rec.Body.String())
	}
	var out struct {
		Adjustment adjustmentResponse `json:"adjustment"`
		Item       itemResponse       `json:"item"`
	}
	decodeInto(t, rec, &out)
	if out.Adjustment.AmountMinor != 500 || out.Adjustment.Kind != cuadre.AdjustmentPositive {
		t.Fatalf("unexpected adjustment: %+v", out.Adjustment)
	}
	if out.Item.State != cuadre.StateCuadradoManual || out.Item.DifferenceMinor != 0 {
		t.Fatalf("unexpected item after adjustment: %+v", out.Item)
	}

	// deleting twice both return 204
	for i := 0; i < 2; i++ {
		rec = doJSON(t, srv, http.MethodDelete, "/v1/adjustments/"+out.Adjustment.ID.String(), nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete #%d: status = %d, want 204", i+1, rec.Code)
		}
	}
}

func TestCreateAdjustmentRejections(t *testing.T) {
	srv, store := newTestServer(t)
	z := seedDay(t, store, 9000, 8500)
	path := "/v1/cuadre/" + z.ID.String() + "/adjustments"

	rec := doJSON(t, srv, http.MethodPost, path, createAdjustmentRequest{Kind: "descuento", AmountMinor: 100})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad kind: status = %d, want 422", rec.Code)
	}
	var e errorResponse
	decodeInto(t, rec, &e)
	if e.Code != "invalid_kind" {
		t.Fatalf("code = %q, want invalid_kind", e.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, path, createAdjustmentRequest{Kind: cuadre.AdjustmentNegative, AmountMinor: -10})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad amount: status = %d, want 422", rec.Code)
	}

	// missing content type
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("no content type: status = %d, want 415", w.Code)
	}

	// unknown field
	req = httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(`{"kind":"positive","amount_minor":100,"extra":true}`)))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status = %d, want 400", w.Code)
	}
}

func TestConfirmEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	z := seedDay(t, store, 9000, 8500)

	rec := doJSON(t, srv, http.MethodPost, "/v1/cuadre/"+z.ID.String()+"/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", rec.Code, rec.Body.String())
	}
	var item itemResponse
	decodeInto(t, rec, &item)
	if !item.Confirmed {
		t.Fatalf("expected confirmed item")
	}

	// a day that balanced on its own has nothing to confirm
	balanced := seedDay(t, store, 5000, 5000)
	rec = doJSON(t, srv, http.MethodPost, "/v1/cuadre/"+balanced.ID.String()+"/confirm", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var e errorResponse
	decodeInto(t, rec, &e)
	if e.Code != "not_allowed" {
		t.Fatalf("code = %q, want not_allowed", e.Code)
	}
}

func TestPendingEndpoints(t *testing.T) {
	srv, store := newTestServer(t)
	z := seedDay(t, store, 9000, 8500)
	path := "/v1/cuadre/" + z.ID.String() + "/pending"

	rec := doJSON(t, srv, http.MethodPost, path, markPendingRequest{Reason: "  "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank reason: status = %d, want 422", rec.Code)
	}
	var e errorResponse
	decodeInto(t, rec, &e)
	if e.Code != "blank_reason" {
		t.Fatalf("code = %q, want blank_reason", e.Code)
	}

	// turn the propuesta into a descuadre, then park it
	rec = doJSON(t, srv, http.MethodPost, "/v1/cuadre/"+z.ID.String()+"/adjustments", createAdjustmentRequest{
		Kind: cuadre.AdjustmentPositive, AmountMinor: 100,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("adjustment: status = %d (body=%s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodPost, path, markPendingRequest{Reason: "esperando al banco"})
	if rec.Code != http.StatusOK {
		t.Fatalf("mark pending: status = %d (body=%s)", rec.Code, rec.Body.String())
	}
	var item itemResponse
	decodeInto(t, rec, &item)
	if item.State != cuadre.StatePendiente || item.PendingReason != "esperando al banco" {
		t.Fatalf("unexpected item: %+v", item)
	}

	rec = doJSON(t, srv, http.MethodDelete, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear pending: status = %d", rec.Code)
	}
	item = itemResponse{}
	decodeInto(t, rec, &item)
	if item.State != cuadre.StateDescuadre || item.PendingReason != "" {
		t.Fatalf("unexpected item after clear: %+v", item)
	}
}

func TestRelocateEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	date := tradingDay(t)
	zA := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(5200), DocumentRef: "Z-0001"}
	zB := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(0), DocumentRef: "Z-0002"}
	store.SeedZReport(zA)
	store.SeedZReport(zB)
	zidA := zA.ID
	inv := cuadre.Invoice{ID: uuid.New(), Date: date, IssuedAt: date.Add(13 * time.Hour), Amount: cuadre.AmountFromMinor(5200), PaymentMethod: "tarjeta", ZReportID: &zidA}
	store.SeedInvoice(inv)

	rec := doJSON(t, srv, http.MethodPost, "/v1/invoices/"+inv.ID.String()+"/relocate", relocateInvoiceRequest{ZReportID: zB.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", rec.Code, rec.Body.String())
	}
	var out relocationResponse
	decodeInto(t, rec, &out)
	if out.Source == nil || out.Source.DifferenceMinor != -5200 {
		t.Fatalf("unexpected source: %+v", out.Source)
	}
	if out.Target.DifferenceMinor != 5200 {
		t.Fatalf("unexpected target: %+v", out.Target)
	}

	// missing target id
	rec = doJSON(t, srv, http.MethodPost, "/v1/invoices/"+inv.ID.String()+"/relocate", relocateInvoiceRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("nil target: status = %d, want 400", rec.Code)
	}

	// target on another day
	other := cuadre.ZReport{ID: uuid.New(), Date: date.AddDate(0, 0, 1), DeclaredTotal: cuadre.AmountFromMinor(0), DocumentRef: "Z-0003"}
	store.SeedZReport(other)
	rec = doJSON(t, srv, http.MethodPost, "/v1/invoices/"+inv.ID.String()+"/relocate", relocateInvoiceRequest{ZReportID: other.ID})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("cross-day: status = %d, want 422", rec.Code)
	}
	var e errorResponse
	decodeInto(t, rec, &e)
	if e.Code != "date_mismatch" {
		t.Fatalf("code = %q, want date_mismatch", e.Code)
	}
}

func TestAttachAndOrphanEndpoints(t *testing.T) {
	srv, store := newTestServer(t)
	z := seedDay(t, store, 8500, 5200)
	orphan := cuadre.Invoice{ID: uuid.New(), Date: tradingDay(t), IssuedAt: tradingDay(t).Add(15 * time.Hour), Amount: cuadre.AmountFromMinor(3300), PaymentMethod: "bizum"}
	store.SeedInvoice(orphan)

	rec := doJSON(t, srv, http.MethodGet, "/v1/cuadre/"+z.ID.String()+"/orphans", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("orphans: status = %d", rec.Code)
	}
	var list struct {
		Items []invoiceResponse `json:"items"`
	}
	decodeInto(t, rec, &list)
	if len(list.Items) != 1 || list.Items[0].ID != orphan.ID {
		t.Fatalf("unexpected orphans: %+v", list.Items)
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/cuadre/"+z.ID.String()+"/invoices", attachInvoicesRequest{InvoiceIDs: []uuid.UUID{orphan.ID}})
	if rec.Code != http.StatusOK {
		t.Fatalf("attach: status = %d (body=%s)", rec.Code, rec.Body.String())
	}
	var item itemResponse
	decodeInto(t, rec, &item)
	if item.InvoiceCount != 2 || item.DifferenceMinor != 0 {
		t.Fatalf("unexpected item after attach: %+v", item)
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/cuadre/"+z.ID.String()+"/invoices", attachInvoicesRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty ids: status = %d, want 400", rec.Code)
	}
}

func TestTargetsEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	date := tradingDay(t)
	zA := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(100), DocumentRef: "Z-0001"}
	zB := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(200), DocumentRef: "Z-0002"}
	store.SeedZReport(zA)
	store.SeedZReport(zB)

	rec := doJSON(t, srv, http.MethodGet, "/v1/cuadre/"+zA.ID.String()+"/targets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list struct {
		Items []zreportResponse `json:"items"`
	}
	decodeInto(t, rec, &list)
	if len(list.Items) != 1 || list.Items[0].ID != zB.ID {
		t.Fatalf("unexpected targets: %+v", list.Items)
	}
	if list.Items[0].Declared != "2.00" {
		t.Fatalf("declared = %s, want 2.00", list.Items[0].Declared)
	}
}

func TestDictionaryAndHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/v1/dictionary/payment-methods", "/v1/dictionary/adjustment-kinds", "/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestFormatMinor(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		5:     "0.05",
		100:   "1.00",
		-100:  "-1.00",
		8550:  "85.50",
		-1234: "-12.34",
	}
	for in, want := range cases {
		if got := formatMinor(in); got != want {
			t.Fatalf("formatMinor(%d) = %q, want %q", in, got, want)
		}
	}
}
