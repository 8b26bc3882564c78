package content

import "fmt"

// RetrievalError wraps any failure to obtain content: transport, a
// non-2xx answer from the store, or a result that does not decode.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("content %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
