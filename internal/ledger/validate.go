package ledger

import (
	"regexp"

	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
)

var (
	accountFormat = regexp.MustCompile(`^[0-9]{10}$`)
	routingFormat = regexp.MustCompile(`^[0-9]{9}$`)
)

// ValidAccount reports whether account is a 10 digit account number.
func ValidAccount(account string) bool {
	return accountFormat.MatchString(account)
}

// ValidRouting reports whether routing is a 9 digit routing number.
func ValidRouting(routing string) bool {
	return routingFormat.MatchString(routing)
}

func validateDetails(tx models.Transaction) error {
	if !ValidAccount(tx.FromAccount) || !ValidAccount(tx.ToAccount) ||
		!ValidRouting(tx.FromRouting) || !ValidRouting(tx.ToRouting) {
		return fault.ErrInvalidAccountDetails
	}
	return nil
}
