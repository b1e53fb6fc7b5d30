package result

// Result encapsulates a value along with an error. It is intended to be used
// in scenarios where a single type is needed to represent the outcome of an
// operation that can either succeed with a value of type T or fail with an
// error. The block executor, for instance, reports one Result per processed
// transaction.
type Result[T any] struct {
	Value T
	Error error
}

func Err[T any](value T, err error) Result[T] {
	return Result[T]{Value: value, Error: err}
}

// Get returns the value and error contained in the Result.
func (r Result[T]) Get() (T, error) {
	return r.Value, r.Error
}

// Failed reports whether the Result carries an error.
func (r Result[T]) Failed() bool {
	return r.Error != nil
}
