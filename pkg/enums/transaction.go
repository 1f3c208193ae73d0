package enums

import "fmt"

// TransactionType is the direction of a ledger entry.
type TransactionType string

const (
	TransactionCredit TransactionType = "CREDIT"
	TransactionDebit  TransactionType = "DEBIT"
)

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) IsValid() bool {
	return t == TransactionCredit || t == TransactionDebit
}

func ParseTransactionType(value string) (TransactionType, error) {
	t := TransactionType(value)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid transaction type %q", value)
	}
	return t, nil
}

// TransactionReason explains why a ledger entry exists.
type TransactionReason string

const (
	ReasonAddMoney   TransactionReason = "ADD_MONEY"
	ReasonGameJoin   TransactionReason = "GAME_JOIN"
	ReasonRefund     TransactionReason = "REFUND"
	ReasonAdjustment TransactionReason = "ADJUSTMENT"
)

var validTransactionReasons = []TransactionReason{
	ReasonAddMoney,
	ReasonGameJoin,
	ReasonRefund,
	ReasonAdjustment,
}

func (r TransactionReason) String() string {
	return string(r)
}

func (r TransactionReason) IsValid() bool {
	for _, candidate := range validTransactionReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseTransactionReason(value string) (TransactionReason, error) {
	for _, candidate := range validTransactionReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction reason %q", value)
}
