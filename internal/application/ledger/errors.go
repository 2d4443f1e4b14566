package ledger

import (
	"fmt"

	"usedplus-economy/internal/domain"
)

var (
	ErrFinanceDisabled      = fmt.Errorf("financing is disabled: %w", domain.ErrInvalidInput)
	ErrLeasingDisabled      = fmt.Errorf("leasing is disabled: %w", domain.ErrInvalidInput)
	ErrUnsupportedKind      = fmt.Errorf("unsupported deal kind: %w", domain.ErrInvalidInput)
	ErrFarmNotFound         = fmt.Errorf("farm: %w", domain.ErrNotFound)
	ErrDealNotFound         = fmt.Errorf("deal: %w", domain.ErrNotFound)
	ErrDealNotActive        = fmt.Errorf("deal is not active: %w", domain.ErrInvalidInput)
	ErrNotALease            = fmt.Errorf("deal is not a lease: %w", domain.ErrInvalidInput)
	ErrLeasePayoff          = fmt.Errorf("leases are ended by termination, not payoff: %w", domain.ErrInvalidInput)
	ErrAssetAlreadyFinanced = fmt.Errorf("asset already has an active deal: %w", domain.ErrInvalidInput)
	ErrCannotAfford         = fmt.Errorf("cannot afford: %w", domain.ErrInsufficientFunds)
)

func invalid(reason string) error {
	return fmt.Errorf("%s: %w", reason, domain.ErrInvalidInput)
}
