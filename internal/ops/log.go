package ops

import (
	"context"

	"github.com/hpungsan/lanequote/internal/db"
	"github.com/hpungsan/lanequote/internal/errors"
)

// LogInput contains parameters for the Log operation.
type LogInput struct {
	Limit  int `json:"limit,omitempty"`  // default 20, max 100
	Offset int `json:"offset,omitempty"`
}

// LogOutput contains the result of the Log operation.
type LogOutput struct {
	Items      []db.LogEntry `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// Log lists request log rows, newest first.
func (s *Service) Log(ctx context.Context, in LogInput) (*LogOutput, error) {
	if in.Offset < 0 {
		return nil, errors.NewInvalidRequest("offset must not be negative")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	items, err := db.ListLog(ctx, s.DB, limit, in.Offset)
	if err != nil {
		return nil, err
	}
	total, err := db.CountLog(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.LogEntry{}
	}

	return &LogOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  in.Offset,
			HasMore: in.Offset+len(items) < total,
			Total:   total,
		},
	}, nil
}
