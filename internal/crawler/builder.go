package crawler

import (
	"context"
	"time"
)

// Construct runs one build: it fetches the source, then finalizes the
// table with capturedOn stamped on every row
func Construct(ctx context.Context, b Builder, gameName string, capturedOn time.Time) (*Table, error) {
	if err := b.FetchGameData(ctx, gameName); err != nil {
		return nil, err
	}
	return b.Build(capturedOn), nil
}
