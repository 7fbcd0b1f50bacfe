package workflow

import (
	"context"
	"log"
)

// BulkItemResult is the per-indent outcome of a bulk approval.
type BulkItemResult struct {
	IndentID string `json:"indent_id"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// BulkResult aggregates a bulk approval run.
type BulkResult struct {
	Approved int              `json:"approved"`
	Skipped  int              `json:"skipped"`
	Items    []BulkItemResult `json:"items"`
}

// BulkApprove applies Approve to each selected indent independently. Current
// eligibility is re-validated per item against the freshly loaded record, so
// a stale client-side selection (say, an indent another actor rejected in the
// meantime) is skipped rather than failing the whole batch. There is no
// cross-item transaction; each item's own read-modify-write stays atomic via
// the store's conditional save.
func (e *Engine) BulkApprove(ctx context.Context, actor Actor, ids []string) BulkResult {
	res := BulkResult{Items: make([]BulkItemResult, 0, len(ids))}
	for _, id := range ids {
		_, err := e.Approve(ctx, actor, id, ApproveOptions{bulk: true})
		if err != nil {
			if KindOf(err) == KindInfrastructure {
				log.Printf("bulk approve: indent %s: %v", id, err)
			}
			res.Skipped++
			res.Items = append(res.Items, BulkItemResult{IndentID: id, Reason: err.Error()})
			continue
		}
		res.Approved++
		res.Items = append(res.Items, BulkItemResult{IndentID: id, Approved: true})
	}
	return res
}
