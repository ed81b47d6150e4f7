/*
Package membership provides the join-time authorization capability of the relay.

Whether an identity may enter a project room is decided by the project service's
data, not by the relay itself. The capability is injected as a small interface
so the relay stays testable without a database.
*/
package membership

import "context"

// Checker reports whether an identity is allowed to join the room for a project.
type Checker interface {
	Allowed(ctx context.Context, identity string, roomKey string) (bool, error)
}

// AllowAll admits every identity into every room. It backs development
// deployments without a database and tests.
type AllowAll struct{}

// Allowed always reports true.
func (AllowAll) Allowed(ctx context.Context, identity string, roomKey string) (bool, error) {
	return true, nil
}
