package models

import "time"

// EntitySnapshotRow is the flattened persistence form of one entity
// snapshot. Payload carries the full ranked aggregate set as JSON so the
// table stays one row per snapshot.
// Note: no transport (json/http) concerns here beyond the stored payload.
type EntitySnapshotRow struct {
	Entity        string
	GeneratedAt   time.Time
	Dominant      string
	DominantScore float64
	DominantLevel string
	Readiness     float64
	Caution       float64
	Recovery      float64
	Stability     float64
	Samples       int
	Payload       []byte
}

// ConsensusSnapshotRow is the flattened persistence form of one consensus
// snapshot for a subject.
type ConsensusSnapshotRow struct {
	Subject        string
	CreatedAt      time.Time
	Dominant       string
	DominantScore  float64
	DominantLevel  string
	ConsensusRatio float64
	ConfidenceGap  float64
	Cohort         int
	Payload        []byte
}
