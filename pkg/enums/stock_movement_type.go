package enums

// StockMovementType labels the direction of a stock mutation.
type StockMovementType string

const (
	StockMovementOut        StockMovementType = "out"
	StockMovementIn         StockMovementType = "in"
	StockMovementAdjustment StockMovementType = "adjustment"
)

var validStockMovementTypes = []StockMovementType{
	StockMovementOut,
	StockMovementIn,
	StockMovementAdjustment,
}

// String implements fmt.Stringer.
func (s StockMovementType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockMovementType.
func (s StockMovementType) IsValid() bool {
	for _, candidate := range validStockMovementTypes {
		if candidate == s {
			return true
		}
	}
	return false
}
