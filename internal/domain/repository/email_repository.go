package repository

import (
	"context"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
)

// EmailRepository keeps the inbound email ingestion log
type EmailRepository interface {
	Save(ctx context.Context, email *entity.InboundEmail) error
	FindByEmailIDs(ctx context.Context, emailIDs []string) (map[string]*entity.InboundEmail, error)
}
