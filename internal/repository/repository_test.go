package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPlanRepository_FindPlanByName_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPlanRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "plans" WHERE name = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "display_name"}).AddRow(id.String(), "starter", "Starter"))

	plan, err := repo.FindPlanByName(context.Background(), "starter")
	require.NoError(t, err)
	assert.Equal(t, id, plan.ID)
	assert.Equal(t, "starter", plan.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepository_FindPlanByName_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPlanRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "plans" WHERE name = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := repo.FindPlanByName(context.Background(), "gold")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlanRepository_FindPlanFeature_DatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPlanRepository(db)
	boom := errors.New("connection refused")

	mock.ExpectQuery(`SELECT \* FROM "plan_features" WHERE plan_id = \$1 AND feature_id = \(SELECT id FROM features WHERE key = \$2\)`).
		WillReturnError(boom)

	_, err := repo.FindPlanFeature(context.Background(), uuid.New(), "accounting")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestProfileRepository_FindObjectPermission_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)
	profileID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "profile_id", "object_type", "access_level", "can_create", "can_read", "can_edit", "can_delete", "can_view_all"}).
		AddRow(uuid.New().String(), profileID.String(), "JournalEntry", "Read", false, true, false, false, false)
	mock.ExpectQuery(`SELECT \* FROM "object_permissions" WHERE profile_id = \$1 AND object_type = \$2`).
		WillReturnRows(rows)

	perm, err := repo.FindObjectPermission(context.Background(), profileID, "JournalEntry")
	require.NoError(t, err)
	assert.True(t, perm.CanRead)
	assert.False(t, perm.CanCreate)
	assert.Equal(t, profileID, perm.ProfileID)
}

func TestProfileRepository_FindFieldPermission_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "field_permissions" WHERE profile_id = \$1 AND object_type = \$2 AND field_name = \$3`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindFieldPermission(context.Background(), uuid.New(), "Tenant", "ssn")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileRepository_DeleteFieldPermission_NoRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectExec(`DELETE FROM "field_permissions"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteFieldPermission(context.Background(), uuid.New(), "Tenant", "ssn")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_DeleteFieldPermission_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectExec(`DELETE FROM "field_permissions"`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteFieldPermission(context.Background(), uuid.New(), "Tenant", "ssn"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_RunInTx_Commit(t *testing.T) {
	db, mock := setupMockDB(t)
	tm := NewTransactionManager(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	var sawTx bool
	err := tm.RunInTx(context.Background(), func(txCtx context.Context) error {
		_, sawTx = txCtx.Value(txContextKey{}).(*gorm.DB)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawTx)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_RunInTx_RollbackOnError(t *testing.T) {
	db, mock := setupMockDB(t)
	tm := NewTransactionManager(db)
	boom := errors.New("audit write failed")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tm.RunInTx(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_RunInTx_NestedJoinsOuter(t *testing.T) {
	db, mock := setupMockDB(t)
	tm := NewTransactionManager(db)

	// one BEGIN/COMMIT pair for both levels
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tm.RunInTx(context.Background(), func(txCtx context.Context) error {
		return tm.RunInTx(txCtx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_CountUnreadForUser_IncludesPlatformWide(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewNotificationRepository(db)
	userID, orgID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications" WHERE \(user_id = \$1 OR \(user_id IS NULL AND \(organization_id = \$2 OR organization_id IS NULL\)\)\) AND read_at IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUnreadForUser(context.Background(), userID, &orgID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_CountUnreadForUser_OnboardingSeesPlatformWide(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewNotificationRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications" WHERE \(user_id = \$1 OR \(user_id IS NULL AND organization_id IS NULL\)\) AND read_at IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountUnreadForUser(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
