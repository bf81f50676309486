package repo

import "fmt"

// once holds a value that may be set a single time.
type once[T any] struct {
	value T
	set   bool
}

func (o *once[T]) put(name string, v T) error {
	if o.set {
		return fmt.Errorf("%s has already been set", name)
	}
	o.value, o.set = v, true
	return nil
}

func (o *once[T]) get(name string) (T, error) {
	if !o.set {
		var zero T
		return zero, fmt.Errorf("%s has not been set", name)
	}
	return o.value, nil
}
