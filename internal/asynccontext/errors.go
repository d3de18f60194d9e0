package asynccontext

import (
	"errors"
	"fmt"
)

// ErrNotCallable is wrapped by every TypeError raised for a missing callback.
var ErrNotCallable = errors.New("argument is not a function")

// TypeError reports an invalid argument. It is always returned before the
// current snapshot is touched.
type TypeError struct {
	Arg string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("TypeError: %q %s", e.Arg, ErrNotCallable.Error())
}

func (e *TypeError) Unwrap() error { return ErrNotCallable }

func notCallable(arg string) error {
	return &TypeError{Arg: arg}
}
