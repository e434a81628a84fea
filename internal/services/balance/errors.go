package balance

import "fmt"

// InvalidBalanceError reports a balance-override request that cannot be
// satisfied. It is raised before any mutation, so a failed request never
// leaves a partial change behind.
type InvalidBalanceError struct {
	AccountID string
	Reason    string
}

func (e *InvalidBalanceError) Error() string {
	return fmt.Sprintf("invalid balance request for account %s: %s", e.AccountID, e.Reason)
}
