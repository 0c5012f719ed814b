package domain

import "time"

// SyncStats holds statistics about a sync operation.
type SyncStats struct {
	SourceID  string        `json:"sourceId"`
	Fetched   int           `json:"fetched"`
	New       int           `json:"inserted"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	Published int           `json:"published"`
	Duration  time.Duration `json:"duration"`
}

type SyncState struct {
	ID           int64     `db:"id" json:"-"`
	SourceID     string    `db:"source_id" json:"sourceId"`
	LastSyncedAt time.Time `db:"last_synced_at" json:"lastSyncedAt"`
	LastInserted int64     `db:"last_inserted" json:"lastInserted"`
	LastUpdated  int64     `db:"last_updated" json:"lastUpdated"`
	TotalSynced  int64     `db:"total_synced" json:"totalSynced"`
}
