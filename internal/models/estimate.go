package models

import (
	"fmt"

	"github.com/Simplici0/smeta/internal/apperr"
)

// DefaultCoefficient replaces an unset or zero markup coefficient.
const DefaultCoefficient = 1.0

// AuxiliaryLine is a supporting material consumed per unit of its parent item.
// MaterialRef optionally names a catalog material whose values replace the
// inline ones when the estimate is read.
type AuxiliaryLine struct {
	MaterialRef string  `json:"materialRef,omitempty"`
	Name        string  `json:"name"`
	Category    string  `json:"category,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	PriceNet    float64 `json:"priceNet"`
	Amount      float64 `json:"amount"`
}

// Item is a basic line of an estimate.
type Item struct {
	Name            string          `json:"name"`
	Category        string          `json:"category,omitempty"`
	Stage           string          `json:"stage,omitempty"`
	Unit            string          `json:"unit,omitempty"`
	PriceNet        float64         `json:"priceNet"`
	Amount          float64         `json:"amount"`
	CoeffIndividual *float64        `json:"coeffIndividual,omitempty" validate:"omitempty,gte=0"`
	Auxiliary       []AuxiliaryLine `json:"auxiliary,omitempty"`
}

// Estimate is the raw stored document. Totals are never stored; see pricing.
type Estimate struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name" validate:"required"`
	Date        string   `json:"date,omitempty"`
	Customer    string   `json:"customer,omitempty"`
	Residence   string   `json:"residence,omitempty"`
	Layout      string   `json:"layout,omitempty"`
	Style       string   `json:"style,omitempty"`
	CoeffCommon *float64 `json:"coeffCommon,omitempty" validate:"omitempty,gte=0"`
	Items       []Item   `json:"items,omitempty" validate:"dive"`
}

func (e Estimate) DocID() string   { return e.ID }
func (e Estimate) DocName() string { return e.Name }

// Validate checks the estimate schema.
func (e Estimate) Validate() error {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	fe, ok := firstFieldError(err)
	if !ok {
		return apperr.InvalidInput(err.Error())
	}
	if fe.Namespace() == "Estimate.name" {
		return apperr.InvalidInput("Отсутствует имя сметы")
	}
	return apperr.InvalidInput(fmt.Sprintf("Некорректное поле сметы %s: %v", fe.Namespace(), fe.Value()))
}

// Coeff returns a new pointer to v.
func Coeff(v float64) *float64 { return &v }

// Normalize replaces unset or zero coefficients with DefaultCoefficient in place.
func (e *Estimate) Normalize() {
	e.CoeffCommon = normalizeCoeff(e.CoeffCommon)
	for i := range e.Items {
		e.Items[i].CoeffIndividual = normalizeCoeff(e.Items[i].CoeffIndividual)
	}
}

func normalizeCoeff(c *float64) *float64 {
	if c == nil || *c == 0 {
		return Coeff(DefaultCoefficient)
	}
	return c
}

// EstimatePatch holds the top-level fields of an update. Nil fields are left
// untouched; a present field replaces the stored value as a whole.
type EstimatePatch struct {
	Name        *string  `json:"name"`
	Date        *string  `json:"date"`
	Customer    *string  `json:"customer"`
	Residence   *string  `json:"residence"`
	Layout      *string  `json:"layout"`
	Style       *string  `json:"style"`
	CoeffCommon *float64 `json:"coeffCommon"`
	Items       *[]Item  `json:"items"`
}

// Apply returns a copy of e with the patch fields merged in.
func (p EstimatePatch) Apply(e Estimate) Estimate {
	out := e
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Customer != nil {
		out.Customer = *p.Customer
	}
	if p.Residence != nil {
		out.Residence = *p.Residence
	}
	if p.Layout != nil {
		out.Layout = *p.Layout
	}
	if p.Style != nil {
		out.Style = *p.Style
	}
	if p.CoeffCommon != nil {
		out.CoeffCommon = Coeff(*p.CoeffCommon)
	}
	if p.Items != nil {
		out.Items = append([]Item(nil), (*p.Items)...)
	}
	return out
}
