package access

import (
	"cmp"
	"fmt"

	"rentledger/internal/model"
)

// levelOrder is the fixed access hierarchy. Position in this slice is the rank.
var levelOrder = []model.AccessLevel{
	model.AccessNone,
	model.AccessRead,
	model.AccessReadWrite,
	model.AccessAll,
}

// rank returns the position of level in levelOrder. Unknown levels rank as None.
func rank(level model.AccessLevel) int {
	for i, l := range levelOrder {
		if l == level {
			return i
		}
	}
	return 0
}

// Compare orders two access levels: negative if a < b, zero if equal, positive if a > b.
func Compare(a, b model.AccessLevel) int {
	return cmp.Compare(rank(a), rank(b))
}

// ParseLevel accepts one of None, Read, ReadWrite or All.
func ParseLevel(s string) (model.AccessLevel, error) {
	for _, l := range levelOrder {
		if string(l) == s {
			return l, nil
		}
	}
	return model.AccessNone, fmt.Errorf("%w: unknown access level %q", ErrValidation, s)
}

// DeriveLevel projects the CRUD flags of a permission row onto the access hierarchy.
func DeriveLevel(p model.ObjectPermission) model.AccessLevel {
	switch {
	case p.CanCreate && p.CanRead && p.CanEdit && p.CanDelete && p.CanViewAll:
		return model.AccessAll
	case p.CanCreate || p.CanEdit || p.CanDelete:
		return model.AccessReadWrite
	case p.CanRead:
		return model.AccessRead
	default:
		return model.AccessNone
	}
}

// ExpandLevel fills the CRUD flags that a level implies. viewAll is kept for Read and
// ReadWrite, forced on for All and forced off for None.
func ExpandLevel(p *model.ObjectPermission, level model.AccessLevel, viewAll bool) {
	p.CanCreate, p.CanRead, p.CanEdit, p.CanDelete, p.CanViewAll = false, false, false, false, false
	switch level {
	case model.AccessAll:
		p.CanCreate, p.CanRead, p.CanEdit, p.CanDelete, p.CanViewAll = true, true, true, true, true
	case model.AccessReadWrite:
		p.CanCreate, p.CanRead, p.CanEdit, p.CanViewAll = true, true, true, viewAll
	case model.AccessRead:
		p.CanRead, p.CanViewAll = true, viewAll
	}
	p.AccessLevel = DeriveLevel(*p)
}

// ValidateFlags rejects flag sets that grant anything without read.
func ValidateFlags(p model.ObjectPermission) error {
	if (p.CanCreate || p.CanEdit || p.CanDelete || p.CanViewAll) && !p.CanRead {
		return fmt.Errorf("%w: %s grants create, edit, delete or view-all without read", ErrValidation, p.ObjectType)
	}
	return nil
}

// Normalize validates the flags and overwrites AccessLevel with the derived value.
func Normalize(p *model.ObjectPermission) error {
	if err := ValidateFlags(*p); err != nil {
		return err
	}
	p.AccessLevel = DeriveLevel(*p)
	return nil
}

// HasMinimumAccess reports whether p reaches at least min. A missing row is None and an
// unknown min is never reached.
func HasMinimumAccess(p *model.ObjectPermission, min model.AccessLevel) bool {
	if _, err := ParseLevel(string(min)); err != nil {
		return false
	}
	level := model.AccessNone
	if p != nil {
		level = DeriveLevel(*p)
	}
	return Compare(level, min) >= 0
}
