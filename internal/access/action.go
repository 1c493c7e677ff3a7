package access

import (
	"fmt"

	"rentledger/internal/model"
)

// Action is an operation on an object type.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionViewAll Action = "viewAll"
)

// ParseAction rejects anything outside create, read, edit, delete and viewAll.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionCreate, ActionRead, ActionEdit, ActionDelete, ActionViewAll:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrValidation, s)
}

// Allows maps the action onto its flag in p.
func (a Action) Allows(p model.ObjectPermission) bool {
	switch a {
	case ActionCreate:
		return p.CanCreate
	case ActionRead:
		return p.CanRead
	case ActionEdit:
		return p.CanEdit
	case ActionDelete:
		return p.CanDelete
	case ActionViewAll:
		return p.CanViewAll
	}
	return false
}

// allowsField applies a field row to the action. Delete and viewAll are record-level
// and inherit the object decision.
func (a Action) allowsField(f model.FieldPermission) bool {
	switch a {
	case ActionRead:
		return f.CanRead
	case ActionCreate, ActionEdit:
		return f.CanEdit
	}
	return true
}
