package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/tenancy"
)

var projectRowColumns = []string{
	"id", "created_at", "updated_at", "tenant_id", "name", "slug", "description", "visibility",
	"status", "total_amount", "minimum_contribution", "max_contributors", "payment_options",
	"installment_frequency", "custom_installment_months", "start_date", "end_date",
	"registration_deadline", "created_by", "managed_by", "settings", "version",
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return db, mock, NewPostgresStoreFromDB(db)
}

func projectRows(id, tenantID, creator, manager uuid.UUID) *sqlmock.Rows {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(projectRowColumns).AddRow(
		id.String(), now, now, tenantID.String(), "Community Borehole", "community-borehole",
		"Water for the village", "public", "active", "1000.00", "50.00", nil,
		"{full,installments}", "monthly", nil, now, now.AddDate(0, 2, 0),
		nil, creator.String(), "{"+manager.String()+"}", []byte(`{"theme":"blue"}`), int64(3),
	)
}

func TestGetProject_Scoped(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	id, tenantID, creator, manager := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	ctx := tenancy.WithTenant(context.Background(), tenantID)

	mock.ExpectQuery(`FROM projects WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(id, tenantID).
		WillReturnRows(projectRows(id, tenantID, creator, manager))

	p, err := store.GetProject(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, models.ProjectStatusActive, p.Status)
	assert.True(t, decimal.RequireFromString("1000").Equal(p.TotalAmount))
	require.NotNil(t, p.MinimumContribution)
	assert.True(t, decimal.RequireFromString("50").Equal(*p.MinimumContribution))
	assert.Nil(t, p.MaxContributors)
	assert.Equal(t, []models.PaymentOption{models.PaymentFull, models.PaymentInstallments}, p.PaymentOptions)
	require.NotNil(t, p.InstallmentFrequency)
	assert.Equal(t, models.FrequencyMonthly, *p.InstallmentFrequency)
	assert.Equal(t, []uuid.UUID{manager}, p.ManagedBy)
	assert.Equal(t, "blue", p.Settings["theme"])
	assert.Equal(t, 3, p.Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProject_BypassHasNoTenantClause(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	id, tenantID := uuid.New(), uuid.New()
	ctx := tenancy.WithoutScope(context.Background())

	mock.ExpectQuery(`FROM projects WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(projectRows(id, tenantID, uuid.New(), uuid.New()))

	p, err := store.GetProject(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, tenantID, p.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProject_NoScope(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	_, err := store.GetProject(context.Background(), uuid.New())

	assert.ErrorIs(t, err, tenancy.ErrNoScope)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProject_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	id, tenantID := uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM projects WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(id, tenantID).
		WillReturnRows(sqlmock.NewRows(projectRowColumns))

	_, err := store.GetProject(tenancy.WithTenant(context.Background(), tenantID), id)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProjectForUpdate_LocksInsideTx(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	id, tenantID := uuid.New(), uuid.New()
	ctx := tenancy.WithTenant(context.Background(), tenantID)

	mock.ExpectBegin()
	mock.ExpectQuery(`AND tenant_id = \$2 FOR UPDATE`).
		WithArgs(id, tenantID).
		WillReturnRows(projectRows(id, tenantID, uuid.New(), uuid.New()))
	mock.ExpectCommit()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	_, err = tx.GetProjectForUpdate(ctx, id)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginTx_Nested(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := store.BeginTx(context.Background())
	require.NoError(t, err)

	_, err = tx.BeginTx(context.Background())
	assert.ErrorIs(t, err, ErrNestedTx)

	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProject_FillsTenantFromScope(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	tenantID := uuid.New()
	ctx := tenancy.WithTenant(context.Background(), tenantID)

	mock.ExpectExec(`INSERT INTO projects`).WillReturnResult(sqlmock.NewResult(1, 1))

	p := &models.Project{Name: "Borehole", Slug: "borehole", Status: models.ProjectStatusDraft}
	require.NoError(t, store.CreateProject(ctx, p))

	assert.Equal(t, tenantID, p.TenantID)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, 1, p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProject_OutOfScope(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	ctx := tenancy.WithTenant(context.Background(), uuid.New())
	p := &models.Project{TenantModel: models.TenantModel{TenantID: uuid.New()}}

	err := store.CreateProject(ctx, p)

	assert.ErrorIs(t, err, ErrOutOfScope)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProject_DuplicateSlug(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	tenantID := uuid.New()
	mock.ExpectExec(`INSERT INTO projects`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "projects_slug_key"`))

	err := store.CreateProject(tenancy.WithTenant(context.Background(), tenantID), &models.Project{Slug: "taken"})

	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProject_IncrementsVersion(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	tenantID := uuid.New()
	p := &models.Project{TenantModel: models.TenantModel{BaseModel: models.BaseModel{ID: uuid.New()}, TenantID: tenantID}, Version: 2}

	mock.ExpectExec(`WHERE id = \$1 AND version = \$2 AND tenant_id = \$20`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateProject(tenancy.WithTenant(context.Background(), tenantID), p))

	assert.Equal(t, 3, p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProject_StaleVersion(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	tenantID := uuid.New()
	id := uuid.New()
	p := &models.Project{TenantModel: models.TenantModel{BaseModel: models.BaseModel{ID: id}, TenantID: tenantID}, Version: 2}

	mock.ExpectExec(`UPDATE projects SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM projects WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(id, tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(3)))

	err := store.UpdateProject(tenancy.WithTenant(context.Background(), tenantID), p)

	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProject_Missing(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	tenantID := uuid.New()
	id := uuid.New()
	p := &models.Project{TenantModel: models.TenantModel{BaseModel: models.BaseModel{ID: id}, TenantID: tenantID}, Version: 1}

	mock.ExpectExec(`UPDATE projects SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM projects`).
		WithArgs(id, tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	err := store.UpdateProject(tenancy.WithTenant(context.Background(), tenantID), p)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProjects_FiltersAndScope(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	tenantID := uuid.New()
	status := models.ProjectStatusActive
	id := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM projects WHERE 1=1 AND status = \$1 AND tenant_id = \$2`).
		WithArgs(status, tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs(status, tenantID, 10, 0).
		WillReturnRows(projectRows(id, tenantID, uuid.New(), uuid.New()))

	projects, count, err := store.ListProjects(
		tenancy.WithTenant(context.Background(), tenantID),
		ProjectFilters{Status: &status}, 10, 0,
	)

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, projects, 1)
	assert.Equal(t, id, projects[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProjects_NoLimit(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM projects WHERE 1=1 AND end_date < \$1`).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`LIMIT \$2 OFFSET \$3`).
		WithArgs(cutoff, nil, 0).
		WillReturnRows(sqlmock.NewRows(projectRowColumns))

	projects, _, err := store.ListProjects(
		tenancy.WithoutScope(context.Background()),
		ProjectFilters{EndsBefore: &cutoff}, 0, 0,
	)

	require.NoError(t, err)
	assert.Empty(t, projects)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProjects_VisibleTo(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	tenantID := uuid.New()
	viewer := &ProjectViewer{UserID: uuid.New(), MemberOf: []uuid.UUID{tenantID}}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM projects WHERE 1=1 AND \(visibility = 'public'` +
		`.*created_by = \$1 OR \$1 = ANY\(managed_by\)` +
		`.*tenant_id = ANY\(\$3::uuid\[\]\)` +
		`.*visibility = 'private' AND tenant_id = ANY\(\$2::uuid\[\]\)` +
		`.*i.user_id = \$1 AND i.status = 'accepted'.* AND tenant_id = \$5`).
		WithArgs(viewer.UserID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`LIMIT \$6 OFFSET \$7`).
		WithArgs(viewer.UserID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), tenantID, 20, 0).
		WillReturnRows(sqlmock.NewRows(projectRowColumns))

	projects, count, err := store.ListProjects(
		tenancy.WithTenant(context.Background(), tenantID),
		ProjectFilters{VisibleTo: viewer}, 20, 0,
	)

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, projects)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectSlugExists_IgnoresScope(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM projects WHERE slug = \$1\)`).
		WithArgs("borehole").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.ProjectSlugExists(tenancy.WithTenant(context.Background(), uuid.New()), "borehole")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContributionStats(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	projectID, tenantID := uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM contributions WHERE project_id = \$1 AND status <> \$2 AND tenant_id = \$3`).
		WithArgs(projectID, models.ContributionCancelled, tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"count", "distinct", "paid", "committed"}).
			AddRow(int64(3), int64(2), "150.00", "300.00"))

	stats, err := store.GetContributionStats(tenancy.WithTenant(context.Background(), tenantID), projectID)

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Contributions)
	assert.Equal(t, 2, stats.DistinctUsers)
	assert.True(t, decimal.RequireFromString("150").Equal(stats.TotalPaid))
	assert.True(t, decimal.RequireFromString("300").Equal(stats.TotalCommitted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumProductPrices(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	projectID, tenantID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(price\), 0\) FROM products WHERE project_id = \$1 AND tenant_id = \$2`).
		WithArgs(projectID, tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("1000.00"))

	total, err := store.SumProductPrices(tenancy.WithTenant(context.Background(), tenantID), projectID)

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1000").Equal(total))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProduct_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	id, tenantID := uuid.New(), uuid.New()
	mock.ExpectExec(`DELETE FROM products WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(id, tenantID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteProduct(tenancy.WithTenant(context.Background(), tenantID), id)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
