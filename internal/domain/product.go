package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the trading unit a product is priced in.
type Unit string

const (
	UnitBarrel Unit = "Barrel"
	UnitMMBTU  Unit = "MMBTU"
)

func (u Unit) Valid() bool {
	return u == UnitBarrel || u == UnitMMBTU
}

// Product is a catalog entry. Quantity is advertised stock only; placing an
// order never changes it.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Unit        Unit            `json:"unit"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
