package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/mesabook/cuadre/internal/cuadre"
	"github.com/mesabook/cuadre/internal/dictionary"
	"github.com/mesabook/cuadre/internal/service/reconcile"
)

// itemResponse is the wire form of a classified reconciliation item. Amounts
// travel both as integer minor units and as formatted decimals with two
// fraction digits.
type itemResponse struct {
	ZReportID       uuid.UUID    `json:"zreport_id"`
	Date            string       `json:"date"`
	DocumentRef     string       `json:"document_ref"`
	InvoiceCount    int          `json:"invoice_count"`
	InvoicedMinor   int64        `json:"invoiced_minor"`
	AdjustedMinor   int64        `json:"adjusted_minor"`
	DeclaredMinor   int64        `json:"declared_minor"`
	DifferenceMinor int64        `json:"difference_minor"`
	Invoiced        string       `json:"invoiced"`
	Adjusted        string       `json:"adjusted"`
	Declared        string       `json:"declared"`
	Difference      string       `json:"difference"`
	State           cuadre.State `json:"state"`
	PendingReason   string       `json:"pending_reason,omitempty"`
	Confirmed       bool         `json:"confirmed"`
	AutoExpand      bool         `json:"auto_expand"`
}

type listItemsResponse struct {
	Items []itemResponse `json:"items"`
}

type invoiceResponse struct {
	ID            uuid.UUID              `json:"id"`
	Date          string                 `json:"date"`
	IssuedAt      time.Time              `json:"issued_at"`
	AmountMinor   int64                  `json:"amount_minor"`
	Amount        string                 `json:"amount"`
	PaymentMethod string                 `json:"payment_method"`
	MethodLabel   string                 `json:"payment_method_label"`
	Table         string                 `json:"table,omitempty"`
	ZReportID     *uuid.UUID             `json:"zreport_id,omitempty"`
	Association   cuadre.AssociationKind `json:"association"`
	Metadata      map[string]string      `json:"metadata,omitempty"`
}

type adjustmentResponse struct {
	ID          uuid.UUID             `json:"id"`
	ZReportID   uuid.UUID             `json:"zreport_id"`
	Date        string                `json:"date"`
	Kind        cuadre.AdjustmentKind `json:"kind"`
	AmountMinor int64                 `json:"amount_minor"`
	Amount      string                `json:"amount"`
	Description string                `json:"description"`
	Metadata    map[string]string     `json:"metadata,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

type detailResponse struct {
	Item        itemResponse         `json:"item"`
	Invoices    []invoiceResponse    `json:"invoices"`
	Adjustments []adjustmentResponse `json:"adjustments"`
}

type zreportResponse struct {
	ID            uuid.UUID `json:"id"`
	Date          string    `json:"date"`
	DeclaredMinor int64     `json:"declared_minor"`
	Declared      string    `json:"declared"`
	DocumentRef   string    `json:"document_ref"`
}

type relocationResponse struct {
	Source *itemResponse `json:"source,omitempty"`
	Target itemResponse  `json:"target"`
}

// Mutation requests

type markPendingRequest struct {
	Reason string `json:"reason"`
}

type createAdjustmentRequest struct {
	Kind        cuadre.AdjustmentKind `json:"kind"`
	AmountMinor int64                 `json:"amount_minor"`
	Description string                `json:"description"`
	Metadata    map[string]string     `json:"metadata,omitempty"`
}

type relocateInvoiceRequest struct {
	ZReportID uuid.UUID `json:"zreport_id"`
}

type attachInvoicesRequest struct {
	InvoiceIDs []uuid.UUID `json:"invoice_ids"`
}

// Conversions

func toItemResponse(item cuadre.ReconciliationItem) itemResponse {
	return itemResponse{
		ZReportID:       item.ZReport.ID,
		Date:            item.Date.Format(time.DateOnly),
		DocumentRef:     item.ZReport.DocumentRef,
		InvoiceCount:    item.InvoiceCount,
		InvoicedMinor:   item.InvoicedMinor,
		AdjustedMinor:   item.AdjustedMinor,
		DeclaredMinor:   item.DeclaredMinor,
		DifferenceMinor: item.DifferenceMinor,
		Invoiced:        formatMinor(item.InvoicedMinor),
		Adjusted:        formatMinor(item.AdjustedMinor),
		Declared:        formatMinor(item.DeclaredMinor),
		Difference:      formatMinor(item.DifferenceMinor),
		State:           item.State,
		PendingReason:   item.PendingReason,
		Confirmed:       item.ZReport.Confirmed,
		AutoExpand:      item.AutoExpand,
	}
}

func toInvoiceResponse(inv cuadre.Invoice) invoiceResponse {
	minor := inv.AmountMinor()
	return invoiceResponse{
		ID:            inv.ID,
		Date:          inv.Date.Format(time.DateOnly),
		IssuedAt:      inv.IssuedAt,
		AmountMinor:   minor,
		Amount:        formatMinor(minor),
		PaymentMethod: inv.PaymentMethod,
		MethodLabel:   dictionary.MethodLabel(inv.PaymentMethod),
		Table:         inv.Table,
		ZReportID:     inv.ZReportID,
		Association:   inv.Association,
		Metadata:      inv.Metadata,
	}
}

func toAdjustmentResponse(a cuadre.Adjustment) adjustmentResponse {
	minor, _ := a.Amount.MinorUnits()
	return adjustmentResponse{
		ID:          a.ID,
		ZReportID:   a.ZReportID,
		Date:        a.Date.Format(time.DateOnly),
		Kind:        a.Kind,
		AmountMinor: minor,
		Amount:      formatMinor(minor),
		Description: a.Description,
		Metadata:    a.Metadata,
		CreatedAt:   a.CreatedAt,
	}
}

func toDetailResponse(d reconcile.Detail) detailResponse {
	invs := make([]invoiceResponse, 0, len(d.Invoices))
	for _, inv := range d.Invoices {
		invs = append(invs, toInvoiceResponse(inv))
	}
	adjs := make([]adjustmentResponse, 0, len(d.Adjustments))
	for _, a := range d.Adjustments {
		adjs = append(adjs, toAdjustmentResponse(a))
	}
	return detailResponse{Item: toItemResponse(d.Item), Invoices: invs, Adjustments: adjs}
}

func toZReportResponse(z cuadre.ZReport) zreportResponse {
	minor := z.DeclaredMinor()
	return zreportResponse{
		ID:            z.ID,
		Date:          z.Date.Format(time.DateOnly),
		DeclaredMinor: minor,
		Declared:      formatMinor(minor),
		DocumentRef:   z.DocumentRef,
	}
}

// formatMinor renders minor units as a signed decimal with two fraction digits.
func formatMinor(m int64) string {
	neg := m < 0
	if neg {
		m = -m
	}
	out := itoa64(m/100) + "." + pad2(m%100)
	if neg {
		return "-" + out
	}
	return out
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + itoa64(n)
	}
	return itoa64(n)
}
