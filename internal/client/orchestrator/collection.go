package orchestrator

import (
	"slices"

	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
)

type cloner[T any] interface {
	models.Record
	Clone() T
}

func indexOf[T models.Record](list []T, id string) int {
	return slices.IndexFunc(list, func(r T) bool { return r.RecordID() == id })
}

func cloneAll[T cloner[T]](list []T) []T {
	out := make([]T, len(list))
	for i, r := range list {
		out[i] = r.Clone()
	}
	return out
}

// upsert replaces the record with rec's id in place, or appends rec.
func upsert[T models.Record](list []T, rec T) []T {
	if i := indexOf(list, rec.RecordID()); i >= 0 {
		list[i] = rec
		return list
	}
	return append(list, rec)
}

func remove[T models.Record](list []T, id string) ([]T, bool) {
	i := indexOf(list, id)
	if i < 0 {
		return list, false
	}
	return slices.Delete(list, i, i+1), true
}

// dedupe keeps the first record for every id.
func dedupe[T models.Record](list []T) []T {
	seen := make(map[string]struct{}, len(list))
	out := list[:0]
	for _, r := range list {
		if _, ok := seen[r.RecordID()]; ok {
			continue
		}
		seen[r.RecordID()] = struct{}{}
		out = append(out, r)
	}
	return out
}

// overlay lays the records touched while a reconciliation was in flight
// over the freshly pulled view: local edits are kept and local deletes stay
// deleted. touched maps id to whether the record was deleted.
func overlay[T cloner[T]](pulled, local []T, touched map[string]bool) []T {
	if len(touched) == 0 {
		return pulled
	}
	for _, r := range local {
		if deleted, ok := touched[r.RecordID()]; ok && !deleted {
			pulled = upsert(pulled, r.Clone())
		}
	}
	for id, deleted := range touched {
		if deleted {
			pulled, _ = remove(pulled, id)
		}
	}
	return pulled
}
