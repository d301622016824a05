package enums

import "fmt"

// BalanceMovementType labels one mutation of a member's money pools.
type BalanceMovementType string

const (
	BalanceMovementDeposit      BalanceMovementType = "deposit"
	BalanceMovementDeduction    BalanceMovementType = "deduction"
	BalanceMovementUtangPayment BalanceMovementType = "utang_payment"
	BalanceMovementUtangAdded   BalanceMovementType = "utang_added"
)

var validBalanceMovementTypes = []BalanceMovementType{
	BalanceMovementDeposit,
	BalanceMovementDeduction,
	BalanceMovementUtangPayment,
	BalanceMovementUtangAdded,
}

// String implements fmt.Stringer.
func (b BalanceMovementType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BalanceMovementType.
func (b BalanceMovementType) IsValid() bool {
	for _, candidate := range validBalanceMovementTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBalanceMovementType converts raw input into a BalanceMovementType.
func ParseBalanceMovementType(value string) (BalanceMovementType, error) {
	for _, candidate := range validBalanceMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid balance movement type %q", value)
}
