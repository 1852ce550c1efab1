package enums

import "fmt"

// TxnType classifies an inventory ledger entry.
type TxnType string

const (
	TxnTypeReceive   TxnType = "RECEIVE"
	TxnTypeReserve   TxnType = "RESERVE"
	TxnTypeUnreserve TxnType = "UNRESERVE"
	TxnTypeIssue     TxnType = "ISSUE"
)

var validTxnTypes = []TxnType{
	TxnTypeReceive,
	TxnTypeReserve,
	TxnTypeUnreserve,
	TxnTypeIssue,
}

// IsValid reports whether the value matches a canonical ledger txn type.
func (t TxnType) IsValid() bool {
	for _, candidate := range validTxnTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// RequiresLot reports whether entries of this type must reference a lot.
// RESERVE and UNRESERVE entries are item-level facts and carry no lot.
func (t TxnType) RequiresLot() bool {
	return t == TxnTypeReceive || t == TxnTypeIssue
}

// ParseTxnType converts raw input into TxnType.
func ParseTxnType(value string) (TxnType, error) {
	for _, candidate := range validTxnTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid txn type %q", value)
}
