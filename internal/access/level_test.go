package access

import (
	"errors"
	"testing"

	"rentledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_Order(t *testing.T) {
	levels := []model.AccessLevel{model.AccessNone, model.AccessRead, model.AccessReadWrite, model.AccessAll}
	for i, a := range levels {
		for j, b := range levels {
			got := Compare(a, b)
			switch {
			case i < j:
				assert.Negative(t, got, "%s vs %s", a, b)
			case i > j:
				assert.Positive(t, got, "%s vs %s", a, b)
			default:
				assert.Zero(t, got, "%s is not equal to itself", a)
			}
		}
	}
}

func TestCompare_UnknownIsNone(t *testing.T) {
	assert.Zero(t, Compare("Superuser", model.AccessNone))
	assert.Zero(t, Compare("", model.AccessNone))
	assert.Negative(t, Compare("garbage", model.AccessRead))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("ReadWrite")
	require.NoError(t, err)
	assert.Equal(t, model.AccessReadWrite, level)

	_, err = ParseLevel("readwrite")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDeriveLevel(t *testing.T) {
	tests := []struct {
		name string
		perm model.ObjectPermission
		want model.AccessLevel
	}{
		{"no flags", model.ObjectPermission{}, model.AccessNone},
		{"read only", model.ObjectPermission{CanRead: true}, model.AccessRead},
		{"read and view all", model.ObjectPermission{CanRead: true, CanViewAll: true}, model.AccessRead},
		{"edit", model.ObjectPermission{CanRead: true, CanEdit: true}, model.AccessReadWrite},
		{"everything but view all", model.ObjectPermission{CanCreate: true, CanRead: true, CanEdit: true, CanDelete: true}, model.AccessReadWrite},
		{"everything", model.ObjectPermission{CanCreate: true, CanRead: true, CanEdit: true, CanDelete: true, CanViewAll: true}, model.AccessAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveLevel(tt.perm))
		})
	}
}

func TestExpandLevel_RoundTripsThroughDerive(t *testing.T) {
	for _, level := range []model.AccessLevel{model.AccessNone, model.AccessRead, model.AccessReadWrite, model.AccessAll} {
		var p model.ObjectPermission
		ExpandLevel(&p, level, false)
		assert.Equal(t, level, DeriveLevel(p))
		assert.Equal(t, level, p.AccessLevel)
		assert.NoError(t, ValidateFlags(p))
	}
}

func TestExpandLevel_ViewAll(t *testing.T) {
	var p model.ObjectPermission
	ExpandLevel(&p, model.AccessRead, true)
	assert.True(t, p.CanViewAll)

	ExpandLevel(&p, model.AccessNone, true)
	assert.False(t, p.CanViewAll)
	assert.False(t, p.CanRead)
}

func TestValidateFlags_RequiresRead(t *testing.T) {
	err := ValidateFlags(model.ObjectPermission{ObjectType: model.ObjectPayment, CanEdit: true})
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), model.ObjectPayment)
}

func TestNormalize_OverwritesStaleLevel(t *testing.T) {
	p := model.ObjectPermission{AccessLevel: model.AccessAll, CanRead: true}
	require.NoError(t, Normalize(&p))
	assert.Equal(t, model.AccessRead, p.AccessLevel)
}

func TestHasMinimumAccess(t *testing.T) {
	assert.True(t, HasMinimumAccess(nil, model.AccessNone))
	assert.False(t, HasMinimumAccess(nil, model.AccessRead))

	// the stored level is ignored, the flags decide
	stale := &model.ObjectPermission{AccessLevel: model.AccessAll, CanRead: true}
	assert.True(t, HasMinimumAccess(stale, model.AccessRead))
	assert.False(t, HasMinimumAccess(stale, model.AccessReadWrite))

	full := &model.ObjectPermission{CanCreate: true, CanRead: true, CanEdit: true, CanDelete: true, CanViewAll: true}
	assert.False(t, HasMinimumAccess(nil, "Admin"))
	assert.False(t, HasMinimumAccess(full, "readwrite"))
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"create", "read", "edit", "delete", "viewAll"} {
		a, err := ParseAction(s)
		require.NoError(t, err)
		assert.Equal(t, Action(s), a)
	}
	_, err := ParseAction("update")
	assert.True(t, errors.Is(err, ErrValidation))
}
