// Package models defines the records the auditor client keeps in memory,
// in the local cache and on the remote store: templates, audits and
// corrective actions.
//
// Every optional top-level field is explicit: an unset pointer or slice is
// written as null rather than left out. The remote store merges updates
// key by key, so a missing key would keep the old value there.
package models

// Record is implemented by every synchronised record type.
type Record interface {
	RecordID() string
}
