package search

import (
	"fmt"

	"usedplus-economy/internal/domain"
)

var (
	ErrSearchDisabled     = fmt.Errorf("used vehicle search is disabled: %w", domain.ErrInvalidInput)
	ErrInvalidTier        = fmt.Errorf("invalid search tier: %w", domain.ErrInvalidInput)
	ErrTierDisabled       = fmt.Errorf("search tier is disabled: %w", domain.ErrInvalidInput)
	ErrInvalidQuality     = fmt.Errorf("invalid quality preference: %w", domain.ErrInvalidInput)
	ErrFarmNotFound       = fmt.Errorf("farm: %w", domain.ErrNotFound)
	ErrItemNotFound       = fmt.Errorf("catalog item: %w", domain.ErrNotFound)
	ErrSearchNotFound     = fmt.Errorf("search: %w", domain.ErrNotFound)
	ErrListingNotFound    = fmt.Errorf("listing: %w", domain.ErrNotFound)
	ErrSearchNotActive    = fmt.Errorf("%w: %w", domain.ErrSearchNotActive, domain.ErrInvalidInput)
	ErrListingUnavailable = fmt.Errorf("listing is no longer available: %w", domain.ErrInvalidInput)
	ErrCannotAfford       = fmt.Errorf("cannot afford: %w", domain.ErrInsufficientFunds)
	ErrNoSpawner          = fmt.Errorf("no vehicle spawner: %w", domain.ErrDependencyUnavailable)
	ErrSpawnFailed        = fmt.Errorf("vehicle spawn failed: %w", domain.ErrDependencyUnavailable)
)
