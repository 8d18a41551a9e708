package tle

import "time"

// ElementSet is one satellite's two-line element set. Immutable once parsed.
type ElementSet struct {
	Name  string
	Line1 string
	Line2 string
}

// Catalog is a complete element-set snapshot from one source. Treated as
// read-only after construction so it can be shared across analysis runs
// without copying.
type Catalog struct {
	Source    string
	FetchedAt time.Time
	Sets      []ElementSet
	Dropped   int // structurally malformed entries removed during parsing
}
