package schema

// LedgerEntry is a record of a relative path that was already transferred.
// The relative path is the primary key within a ledger.
type LedgerEntry struct {
	RelativePath  string `json:"path"`
	DestinationID string `json:"destinationId"`
	Size          uint64 `json:"size"`
}
