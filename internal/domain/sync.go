package domain

// SyncResult reports the outcome of one pipeline run. Transient; returned to
// the caller, never persisted.
type SyncResult struct {
	Indexed int `json:"indexed"`
	Deleted int `json:"deleted"`
	Total   int `json:"total"`
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
}

// Merge adds another result's counts into this one. Pagination metadata is
// taken from the earliest page (lowest offset).
func (r *SyncResult) Merge(other *SyncResult) {
	if other == nil {
		return
	}
	r.Indexed += other.Indexed
	r.Deleted += other.Deleted
	if other.Total > r.Total {
		r.Total = other.Total
	}
}
