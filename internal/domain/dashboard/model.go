package dashboard

import (
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
)

// Status describes the loaded dataset.
type Status struct {
	Loaded      bool                 `json:"loaded"`
	Version     uint64               `json:"version"`
	RefreshedAt time.Time            `json:"refreshedAt,omitzero"`
	Summary     coverage.RootSummary `json:"summary"`
}
