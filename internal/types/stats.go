package types

import "time"

// ComparisonStats summarizes one old/new layout comparison.
type ComparisonStats struct {
	OldStorageEntries int           // Top-level entries in the old layout
	NewStorageEntries int           // Top-level entries in the new layout
	OldTypes          int           // Types in the old universe after canonicalization
	NewTypes          int           // Types in the new universe after canonicalization
	Collisions        int           // Canonical key collisions across both layouts
	CommonObjects     int           // Matched storage entries
	MergedTypes       int           // Types in the extracted graph
	DroppedMembers    int           // Struct members absent from the new layout
	Duration          time.Duration // Time taken for the comparison
}
