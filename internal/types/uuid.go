package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateID returns a k-sortable unique identifier.
func GenerateID() string {
	return ulid.Make().String()
}

// GenerateIDWithPrefix returns a k-sortable identifier with a domain
// prefix, e.g. "accrual_01J...".
func GenerateIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateID())
}

// ID prefixes for the engine's entities.
const (
	IDPrefixContract      = "contract"
	IDPrefixPeriod        = "period"
	IDPrefixAccrual       = "accrual"
	IDPrefixAccruedPeriod = "accrued"
	IDPrefixInvoice       = "invoice"
	IDPrefixClient        = "client"
)
