package haccp

import (
	"context"
)

type CheckpointStorageReader interface {
	FindCheckpointById(ctx context.Context, id string) (Checkpoint, error)
	FindCheckpoints(ctx context.Context) ([]Checkpoint, error)
	FindCheckpointsByProcess(ctx context.Context, processInstanceId string) ([]Checkpoint, error)
	CountCheckpoints(ctx context.Context) (int, error)
}

type CheckpointStorageWriter interface {
	SaveCheckpoint(ctx context.Context, checkpoint Checkpoint) error
}

type CheckResultStorageReader interface {
	FindCheckResultById(ctx context.Context, id string) (CheckResult, error)
}

type CheckResultStorageWriter interface {
	SaveCheckResult(ctx context.Context, result CheckResult) error
}

// Storage is the persistence surface the HACCP service consumes.
type Storage interface {
	CheckpointStorageReader
	CheckpointStorageWriter
	CheckResultStorageReader
	CheckResultStorageWriter
}
