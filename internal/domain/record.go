package domain

// Result is the summary computed once per request.
type Result struct {
	Summary   string `json:"summary"`
	Length    int    `json:"length"`
	Timestamp string `json:"timestamp"`
}

// Record is the item persisted for each accepted request. RequestID is the
// primary key and matches the identifier returned to the caller.
type Record struct {
	RequestID string
	InputText string
	Result    Result
}
