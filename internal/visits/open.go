package visits

import (
	"context"
	"fmt"

	"github.com/agenda-lojas/agenda/internal/config"
)

// Open creates the store selected by cfg
func Open(ctx context.Context, cfg config.VisitsConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendDynamo:
		s, err := OpenDynamo(ctx, cfg.Table, cfg.Region, cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown visits backend %q", cfg.Backend)
	}
}
