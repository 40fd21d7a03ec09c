package insights

// Status tags a Result variant for JSON consumers.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
)

// Result is the uniform adapter contract: either Ok with data or Unavailable
// with a reason, never both. Callers branch on Status for graceful
// degradation instead of handling errors.
type Result[T any] struct {
	Status Status `json:"status"`
	Data   T      `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK wraps data in the success variant.
func OK[T any](data T) Result[T] {
	return Result[T]{Status: StatusOK, Data: data}
}

// Unavailable builds the failure variant carrying only the reason.
func Unavailable[T any](reason string) Result[T] {
	if reason == "" {
		reason = "provider unavailable"
	}
	return Result[T]{Status: StatusUnavailable, Error: reason}
}

// IsOK reports whether the result carries data.
func (r Result[T]) IsOK() bool {
	return r.Status == StatusOK
}
