package snapshot

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownNamespace = errors.New("snapshot: namespace not registered")
	ErrTypeMismatch     = errors.New("snapshot: value type does not match the registered store")
)

// InvalidateError reports a failed namespace invalidation. The generation
// bump is what makes old snapshots unreadable; a failed delete only leaves
// garbage behind.
type InvalidateError struct {
	Namespace string
	BumpErr   error
	DelErr    error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Namespace, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Namespace, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Namespace, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Namespace)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
