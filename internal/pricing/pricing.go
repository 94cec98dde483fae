// Package pricing turns raw estimate documents into priced views.
//
// Every function here is pure: inputs are never mutated and nothing is
// written back to storage.
package pricing

import (
	"math"

	"github.com/Simplici0/smeta/internal/models"
)

// AuxiliaryView is an auxiliary line with its computed cost.
type AuxiliaryView struct {
	models.AuxiliaryLine
	Purpose  models.Purpose `json:"purpose"`
	TotalNet float64        `json:"totalNet"`
}

// ItemView is an estimate item with auxiliary cost distributed per unit.
// Auxiliary shadows the raw lines of the embedded Item.
type ItemView struct {
	models.Item
	Purpose     models.Purpose  `json:"purpose"`
	Auxiliary   []AuxiliaryView `json:"auxiliary"`
	PriceBrutto float64         `json:"priceBrutto"`
	TotalNet    float64         `json:"totalNet"`
	TotalBrutto float64         `json:"totalBrutto"`
}

// EstimateView is the priced presentation of an estimate.
// Items shadows the raw items of the embedded Estimate.
type EstimateView struct {
	models.Estimate
	Items         []ItemView `json:"items"`
	TotalEstimate float64    `json:"totalEstimate"`
}

// Coefficient returns the effective value of an optional markup coefficient.
func Coefficient(c *float64) float64 {
	if c == nil || *c == 0 {
		return models.DefaultCoefficient
	}
	return *c
}

// PriceAuxiliary computes totalNet = priceNet × amount.
func PriceAuxiliary(line models.AuxiliaryLine) AuxiliaryView {
	return AuxiliaryView{
		AuxiliaryLine: line,
		Purpose:       models.PurposeAuxiliary,
		TotalNet:      finite(line.PriceNet * line.Amount),
	}
}

// PriceItem folds the auxiliary cost of an item into its unit price.
// An item with zero amount has nothing to distribute over, so its
// priceBrutto equals priceNet.
func PriceItem(item models.Item) ItemView {
	aux := make([]AuxiliaryView, 0, len(item.Auxiliary))
	auxTotal := 0.0
	for _, line := range item.Auxiliary {
		v := PriceAuxiliary(line)
		auxTotal += v.TotalNet
		aux = append(aux, v)
	}

	priceBrutto := item.PriceNet
	if item.Amount != 0 {
		priceBrutto += auxTotal / item.Amount
	}
	priceBrutto = finite(priceBrutto)

	view := ItemView{
		Item:        item,
		Purpose:     models.PurposeBasic,
		Auxiliary:   aux,
		PriceBrutto: priceBrutto,
		TotalNet:    finite(item.PriceNet * item.Amount),
		TotalBrutto: finite(priceBrutto * item.Amount),
	}
	view.Item.Auxiliary = nil
	view.CoeffIndividual = models.Coeff(Coefficient(item.CoeffIndividual))
	return view
}

// PriceEstimate computes
//
//	totalEstimate = coeffCommon × Σ(priceBrutto × amount × coeffIndividual)
//
// with unset coefficients taken as 1.
func PriceEstimate(e models.Estimate) EstimateView {
	items := make([]ItemView, 0, len(e.Items))
	sum := 0.0
	for _, item := range e.Items {
		v := PriceItem(item)
		sum += v.PriceBrutto * v.Amount * Coefficient(v.CoeffIndividual)
		items = append(items, v)
	}

	coeffCommon := Coefficient(e.CoeffCommon)
	view := EstimateView{
		Estimate:      e,
		Items:         items,
		TotalEstimate: finite(coeffCommon * sum),
	}
	view.Estimate.Items = nil
	view.CoeffCommon = models.Coeff(coeffCommon)
	return view
}

// finite maps NaN and ±Inf to 0 so a degenerate input never breaks a read.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
