package storage

import "microAMM/internal/model"

// ReceiptSink receives processed instruction receipts.
type ReceiptSink interface {
	PutReceipts(receipts []model.Receipt) error
}

// LineErrorSink receives instruction lines that failed to decode.
type LineErrorSink interface {
	PutLineErrors(lineErrors []model.LineError) error
}

// StatsSink receives aggregated pool statistics.
type StatsSink interface {
	PutPoolStats(stats []model.PoolStats) error
}
