package batch

// ItemStatus is the processing outcome of a single entity in a batch.
type ItemStatus string

// Batch item status values.
const (
	StatusCreated ItemStatus = "created"
	StatusUpdated ItemStatus = "updated"
	StatusDeleted ItemStatus = "deleted"
	StatusError   ItemStatus = "error"
)

// Result is the outcome of processing one entity in a batch operation.
type Result struct {
	entityID string
	status   ItemStatus
	err      error
}

// NewUpserted creates a successful upsert result.
func NewUpserted(entityID string, created bool) Result {
	if created {
		return Result{entityID: entityID, status: StatusCreated}
	}
	return Result{entityID: entityID, status: StatusUpdated}
}

// NewDeleted creates a successful delete result.
func NewDeleted(entityID string) Result { return Result{entityID: entityID, status: StatusDeleted} }

// NewError creates a failed batch result.
func NewError(entityID string, err error) Result {
	return Result{entityID: entityID, status: StatusError, err: err}
}

// EntityID returns the item identifier.
func (r Result) EntityID() string { return r.entityID }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// OK reports whether the item succeeded.
func (r Result) OK() bool { return r.status != StatusError }

// Summary counts outcomes of a batch.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize counts successes and failures.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.OK() {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}
