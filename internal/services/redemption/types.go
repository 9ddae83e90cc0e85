package redemption

import (
	"context"
	"encoding/json"
)

// Service exposes the two server operations the operator clients consume.
type Service interface {
	// Verify classifies a code for the calling merchant without mutating
	// it. AlreadyUsed results replay the original consumed snapshot.
	Verify(ctx context.Context, merchantID uint, code string) (*VerifyResult, error)

	// Approve marks a verified record fulfilled. It is the only mutating
	// operation and is safe to retry.
	Approve(ctx context.Context, merchantID, operatorID uint, code string) (json.RawMessage, error)
}

// VerifyResult carries the serialized record snapshot. The snapshot is
// kept as raw bytes so an already-used replay is byte-identical to the
// response sent when the record was first consumed.
type VerifyResult struct {
	AlreadyUsed bool
	Snapshot    json.RawMessage
}

// SnapshotCache is the subset of the cache layer the service needs.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, code string) ([]byte, error)
	SetSnapshot(ctx context.Context, code string, data []byte) error
}
