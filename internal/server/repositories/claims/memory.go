package claims

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/server/models"
)

// MemoryRepository keeps the claim in process memory. It is used when no
// database is configured.
type MemoryRepository struct {
	mu     sync.Mutex
	holder *models.Claim
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Holder(_ context.Context) (*models.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.holder == nil {
		return nil, common.ErrorNotFound
	}
	c := *r.holder
	return &c, nil
}

func (r *MemoryRepository) Claim(_ context.Context, c *models.Claim) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.holder != nil {
		if r.holder.InstallID != c.InstallID {
			return false, nil
		}
		c.ID = r.holder.ID
	}
	stored := *c
	r.holder = &stored
	return true, nil
}

func (r *MemoryRepository) Release(_ context.Context, installID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.holder == nil || r.holder.InstallID != installID {
		return false, nil
	}
	r.holder = nil
	return true, nil
}
