package ports

import (
	"context"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
)

// Harvester is the inbound contract for one batch run over a date range.
type Harvester interface {
	Harvest(ctx context.Context, req domain.HarvestRequest) (*domain.HarvestSummary, error)
}
