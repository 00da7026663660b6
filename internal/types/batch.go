package types

// BatchResult collects per-page outcomes of a generation or upload batch.
type BatchResult struct {
	Success []string          `json:"success"`
	Failed  []string          `json:"failed"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// NewBatchResult returns a result with empty lists.
func NewBatchResult() *BatchResult {
	return &BatchResult{Success: []string{}, Failed: []string{}, Errors: map[string]string{}}
}

// AddSuccess records a page that went through.
func (r *BatchResult) AddSuccess(title string) {
	r.Success = append(r.Success, title)
}

// AddFailure records a failed page and, when err is non-nil, its error text.
func (r *BatchResult) AddFailure(title string, err error) {
	r.Failed = append(r.Failed, title)
	if err == nil {
		return
	}
	if r.Errors == nil {
		r.Errors = map[string]string{}
	}
	r.Errors[title] = err.Error()
}

// Clone returns a deep copy.
func (r *BatchResult) Clone() *BatchResult {
	out := &BatchResult{
		Success: append([]string{}, r.Success...),
		Failed:  append([]string{}, r.Failed...),
		Errors:  make(map[string]string, len(r.Errors)),
	}
	for k, v := range r.Errors {
		out.Errors[k] = v
	}
	return out
}
