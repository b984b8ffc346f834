package session

import (
	"context"

	"github.com/futig/knowledge-console/internal/usecase/session"
)

type SessionRegistry interface {
	Create(ctx context.Context) *session.Session
	Get(id string) (*session.Session, error)
	End(ctx context.Context, id string) error
}
