package query

import (
	"context"

	"github.com/futig/knowledge-console/internal/entity"
)

type Backend interface {
	Query(ctx context.Context, req *entity.QueryRequest) (*entity.QueryResponse, error)
}
