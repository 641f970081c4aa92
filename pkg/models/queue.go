package models

import "time"

// LoadQueue is sent by aggregator and received by serving loader
type LoadQueue struct {
	Topic     Topic    `json:"topic"`
	Aggregate S3Object `json:"aggregate"`
	RowCount  int      `json:"row_count"`
}

// Checkpoint is durable marker of the next log offset to fetch.
type Checkpoint struct {
	Topic      Topic     `json:"topic"`
	Partition  int       `json:"partition"`
	NextOffset int64     `json:"next_offset"`
	UpdatedAt  time.Time `json:"updated_at"`
}
