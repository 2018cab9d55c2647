package repository

import (
	"context"
	"sync"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
)

// MemoryEmailRepository is the in-memory email log used with STORE_DRIVER=memory
type MemoryEmailRepository struct {
	mu   sync.Mutex
	byID map[string]*entity.InboundEmail
	noID []*entity.InboundEmail
}

// NewMemoryEmailRepository creates an empty in-memory email log
func NewMemoryEmailRepository() *MemoryEmailRepository {
	return &MemoryEmailRepository{byID: make(map[string]*entity.InboundEmail)}
}

func (r *MemoryEmailRepository) Save(ctx context.Context, email *entity.InboundEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *email
	if c.EmailID == "" {
		r.noID = append(r.noID, &c)
		return nil
	}
	r.byID[c.EmailID] = &c
	return nil
}

func (r *MemoryEmailRepository) FindByEmailIDs(ctx context.Context, emailIDs []string) (map[string]*entity.InboundEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make(map[string]*entity.InboundEmail)
	for _, id := range emailIDs {
		if e, ok := r.byID[id]; ok {
			c := *e
			result[id] = &c
		}
	}
	return result, nil
}

// All returns every logged email, id-less entries last
func (r *MemoryEmailRepository) All() []*entity.InboundEmail {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*entity.InboundEmail
	for _, e := range r.byID {
		all = append(all, e)
	}
	return append(all, r.noID...)
}
