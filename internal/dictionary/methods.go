package dictionary

import (
	"github.com/mesabook/cuadre/internal/cuadre"
	"github.com/mesabook/cuadre/internal/slug"
)

// MethodDef describes one payment method as shown in the dashboard.
type MethodDef struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// KindDef describes one adjustment kind with its display label.
type KindDef struct {
	Code  cuadre.AdjustmentKind `json:"code"`
	Label string                `json:"label"`
}

var paymentMethods = []MethodDef{
	{Code: "efectivo", Label: "Efectivo"},
	{Code: "tarjeta", Label: "Tarjeta"},
	{Code: "bizum", Label: "Bizum"},
	{Code: "transferencia", Label: "Transferencia"},
	{Code: "otros", Label: "Otros"},
}

var adjustmentKinds = []KindDef{
	{Code: cuadre.AdjustmentPositive, Label: "Ajuste positivo"},
	{Code: cuadre.AdjustmentNegative, Label: "Ajuste negativo"},
	{Code: cuadre.AdjustmentComment, Label: "Comentario"},
}

// PaymentMethods returns the curated payment method dictionary.
func PaymentMethods() []MethodDef {
	out := make([]MethodDef, len(paymentMethods))
	copy(out, paymentMethods)
	return out
}

// AdjustmentKinds returns the adjustment kind dictionary.
func AdjustmentKinds() []KindDef {
	out := make([]KindDef, len(adjustmentKinds))
	copy(out, adjustmentKinds)
	return out
}

// MethodLabel resolves a display label for a payment method code; unknown
// codes fall back to the code itself so POS-specific methods still render.
func MethodLabel(code string) string {
	code = slug.Slugify(code)
	for _, m := range paymentMethods {
		if m.Code == code {
			return m.Label
		}
	}
	return code
}
