package types

// Version is the canonical project version, reported by `narrator version`
// and stamped into run reports.
const Version = "0.3.0"
