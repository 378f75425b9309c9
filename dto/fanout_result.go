package dto

type FanoutResult struct {
	SheetAppended bool
	SheetSkipped  bool
	SheetErr      error
	Persisted     bool
	PersistErr    error
	LogRecordID   int64
}

func (r FanoutResult) OK() bool {
	return r.SheetErr == nil && r.PersistErr == nil
}
