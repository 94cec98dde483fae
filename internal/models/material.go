package models

import (
	"fmt"

	"github.com/Simplici0/smeta/internal/apperr"
)

// Purpose tells basic (billable) materials from auxiliary ones.
type Purpose string

const (
	PurposeBasic     Purpose = "basic"
	PurposeAuxiliary Purpose = "auxiliary"
)

// ParsePurpose accepts "", "basic" and "auxiliary". The empty string means
// "any purpose" in searches.
func ParsePurpose(raw string) (Purpose, error) {
	switch p := Purpose(raw); p {
	case "", PurposeBasic, PurposeAuxiliary:
		return p, nil
	default:
		return "", apperr.InvalidInput(fmt.Sprintf("Некорректное назначение материала: %s", raw))
	}
}

// Material is a catalog entry.
type Material struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name" validate:"required"`
	Category string  `json:"category,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	PriceNet float64 `json:"priceNet"`
	Purpose  Purpose `json:"purpose" validate:"required,oneof=basic auxiliary"`
}

func (m Material) DocID() string   { return m.ID }
func (m Material) DocName() string { return m.Name }

// Validate checks the fields the catalog requires.
func (m Material) Validate() error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	fe, ok := firstFieldError(err)
	if !ok {
		return apperr.InvalidInput(err.Error())
	}
	switch {
	case fe.Field() == "name":
		return apperr.InvalidInput("Отсутствует имя материала")
	case fe.Field() == "purpose" && fe.Tag() == "required":
		return apperr.InvalidInput("Отсутствует назначение материала (basic/auxiliary)")
	default:
		return apperr.InvalidInput(fmt.Sprintf("Некорректное назначение материала: %v", fe.Value()))
	}
}
