package lot

import (
	"context"
)

type LotStorageReader interface {
	FindLotById(ctx context.Context, id string) (Lot, error)
	FindLotByNumber(ctx context.Context, lotNumber string) (Lot, error)
	FindLots(ctx context.Context) ([]Lot, error)
	FindLotsByProcess(ctx context.Context, processInstanceId string) ([]Lot, error)
}

type LotStorageWriter interface {
	SaveLot(ctx context.Context, lot Lot) error
}

type TraceabilityRecordStorageReader interface {
	FindTraceabilityRecordById(ctx context.Context, id string) (TraceabilityRecord, error)
}

type TraceabilityRecordStorageWriter interface {
	SaveTraceabilityRecord(ctx context.Context, record TraceabilityRecord) error
}

// Storage is the persistence surface the LOT tracking service consumes.
type Storage interface {
	LotStorageReader
	LotStorageWriter
	TraceabilityRecordStorageReader
	TraceabilityRecordStorageWriter
}
