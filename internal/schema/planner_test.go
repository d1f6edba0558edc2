package schema_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-wipe/internal/dialect"
	"db-wipe/internal/errs"
	"db-wipe/internal/schema"
)

func TestPlanTables_Postgres(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.PostgresDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TablesQuery("public").SQL).WithArgs("public").
		WillReturnRows(objectRows("public", "temp_users", "public", "temp_posts", "public", "kept_table"))
	mock.ExpectQuery(d.TablesQuery("audit").SQL).WithArgs("audit").
		WillReturnRows(objectRows("audit", "events"))

	plan, err := p.PlanTables(context.Background(), q, []string{"public", "audit"}, []string{"kept_table"})
	require.NoError(t, err)

	assert.Equal(t, schema.Tables, plan.Kind)
	assert.Equal(t, []string{"temp_users", "temp_posts", "events"}, plan.TargetNames(false))
	assert.Equal(t, []dialect.Object{{Schema: "public", Name: "kept_table"}}, plan.Ignored)
	assert.Empty(t, plan.Setup)
	assert.Empty(t, plan.Teardown)

	var sqls []string
	for _, s := range plan.Statements {
		sqls = append(sqls, s.SQL)
	}
	assert.Equal(t, []string{
		`DROP TABLE "public"."temp_users", "public"."temp_posts" CASCADE`,
		`DROP TABLE "audit"."events" CASCADE`,
	}, sqls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanTables_IgnoreMatchesQualifiedName(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.PostgresDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TablesQuery("a").SQL).WithArgs("a").WillReturnRows(objectRows("a", "users"))
	mock.ExpectQuery(d.TablesQuery("b").SQL).WithArgs("b").WillReturnRows(objectRows("b", "users"))

	plan, err := p.PlanTables(context.Background(), q, []string{"a", "b"}, []string{"b.users", "Users"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.users"}, plan.TargetNames(true))
	assert.Equal(t, []dialect.Object{{Schema: "b", Name: "users"}}, plan.Ignored)
}

func TestPlanTables_EmptyTargetsHasNoStatements(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.MysqlDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TablesQuery("").SQL).WithArgs("BASE TABLE").
		WillReturnRows(objectRows("shop", "kept_table"))

	plan, err := p.PlanTables(context.Background(), q, nil, []string{"kept_table"})
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Empty(t, plan.Setup)
	assert.Empty(t, plan.Teardown)

	// Nothing to run: no setup, no teardown, no drops.
	require.NoError(t, p.Execute(context.Background(), q, plan, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_MySQLDisablesChecksAroundDrop(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.MysqlDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TablesQuery("").SQL).WithArgs("BASE TABLE").
		WillReturnRows(objectRows("shop", "temp_posts", "shop", "temp_users"))
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE `shop`.`temp_posts`, `shop`.`temp_users`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	plan, err := p.PlanTables(ctx, q, nil, nil)
	require.NoError(t, err)

	var steps []int
	err = p.Execute(ctx, q, plan, func(_ dialect.Statement, done, total int) {
		steps = append(steps, done, total)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, steps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_FailureStillReenablesChecks(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.SqliteDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TablesQuery("").SQL).WillReturnRows(objectRows("", "a", "", "b", "", "c"))
	mock.ExpectExec("PRAGMA foreign_keys = OFF").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP TABLE "a"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP TABLE "b"`).WillReturnError(errors.New("database is locked"))
	mock.ExpectExec("PRAGMA foreign_keys = ON").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	plan, err := p.PlanTables(ctx, q, nil, nil)
	require.NoError(t, err)
	require.Len(t, plan.Statements, 3)

	err = p.Execute(ctx, q, plan, nil)
	require.Error(t, err)
	assert.True(t, errs.IsSchemaOperation(err))

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "b", e.Object)
	assert.Contains(t, err.Error(), "database is locked")

	// "c" was never attempted.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_DriverCodeCarried(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.MysqlDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TablesQuery("shop").SQL).WithArgs("shop", "BASE TABLE").
		WillReturnRows(objectRows("shop", "t1"))
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE `shop`.`t1`").
		WillReturnError(&mysql.MySQLError{Number: 1051, Message: "Unknown table"})
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	plan, err := p.PlanTables(ctx, q, []string{"shop"}, nil)
	require.NoError(t, err)

	err = p.Execute(ctx, q, plan, nil)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "1051", e.Code)
	assert.Equal(t, "shop.t1", e.Object)

	var myErr *mysql.MySQLError
	assert.ErrorAs(t, err, &myErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_TeardownFailureReported(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.SqliteDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TablesQuery("").SQL).WillReturnRows(objectRows("", "a"))
	mock.ExpectExec("PRAGMA foreign_keys = OFF").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP TABLE "a"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("PRAGMA foreign_keys = ON").WillReturnError(errors.New("disk I/O error"))

	ctx := context.Background()
	plan, err := p.PlanTables(ctx, q, nil, nil)
	require.NoError(t, err)

	err = p.Execute(ctx, q, plan, nil)
	require.Error(t, err)
	assert.True(t, errs.IsSchemaOperation(err))
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanTables_MSSQLDependencyOrder(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.MSSQLDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TablesQuery("dbo").SQL).WithArgs("dbo").
		WillReturnRows(objectRows("dbo", "temp_users", "dbo", "temp_posts", "dbo", "kept_table"))
	mock.ExpectQuery(d.ForeignKeysQuery("dbo").SQL).WithArgs("dbo").
		WillReturnRows(sqlmock.NewRows([]string{"cs", "ct", "ps", "pt"}).
			AddRow("dbo", "temp_posts", "dbo", "temp_users"))
	mock.ExpectExec("DROP TABLE [dbo].[temp_posts]").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE [dbo].[temp_users]").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	plan, err := p.PlanTables(ctx, q, nil, []string{"kept_table"})
	require.NoError(t, err)
	assert.Empty(t, plan.Setup)

	require.NoError(t, p.Execute(ctx, q, plan, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanTables_MSSQLBlockedByIgnoredTable(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.MSSQLDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TablesQuery("dbo").SQL).WithArgs("dbo").
		WillReturnRows(objectRows("dbo", "users", "dbo", "kept_table"))
	mock.ExpectQuery(d.ForeignKeysQuery("dbo").SQL).WithArgs("dbo").
		WillReturnRows(sqlmock.NewRows([]string{"cs", "ct", "ps", "pt"}).
			AddRow("dbo", "kept_table", "dbo", "users"))

	plan, err := p.PlanTables(context.Background(), q, nil, []string{"kept_table"})
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.True(t, errs.IsCyclicDependency(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanTables_OraclePerTable(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.OracleDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TablesQuery("").SQL).WillReturnRows(objectRows("APP", "TEMP_USERS", "APP", "TEMP_POSTS"))

	plan, err := p.PlanTables(context.Background(), q, nil, nil)
	require.NoError(t, err)
	require.Len(t, plan.Statements, 2)
	assert.Equal(t, `DROP TABLE "APP"."TEMP_USERS" CASCADE CONSTRAINTS PURGE`, plan.Statements[0].SQL)
	assert.Equal(t, `DROP TABLE "APP"."TEMP_POSTS" CASCADE CONSTRAINTS PURGE`, plan.Statements[1].SQL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanViews(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.PostgresDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.ViewsQuery("public").SQL).WithArgs("public").
		WillReturnRows(objectRows("public", "active_users", "public", "kept_view"))

	plan, err := p.PlanViews(context.Background(), q, nil, []string{"kept_view"})
	require.NoError(t, err)
	assert.Equal(t, schema.Views, plan.Kind)
	require.Len(t, plan.Statements, 1)
	assert.Equal(t, `DROP VIEW IF EXISTS "public"."active_users" CASCADE`, plan.Statements[0].SQL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanTypes(t *testing.T) {
	mock, q := newMock(t)
	d := &dialect.PostgresDialect{}
	p := schema.NewPlanner(d, zerolog.Nop())

	mock.ExpectQuery(d.TypesQuery("public").SQL).WithArgs("public").
		WillReturnRows(objectRows("public", "mood"))

	plan, err := p.PlanTypes(context.Background(), q, nil, nil)
	require.NoError(t, err)
	require.Len(t, plan.Statements, 1)
	assert.Equal(t, `DROP TYPE "public"."mood" CASCADE`, plan.Statements[0].SQL)

	_, err = schema.NewPlanner(&dialect.SqliteDialect{}, zerolog.Nop()).PlanTypes(context.Background(), q, nil, nil)
	assert.True(t, errs.IsUnsupportedOperation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanTruncate(t *testing.T) {
	pg := schema.NewPlanner(&dialect.PostgresDialect{}, zerolog.Nop())

	plan, err := pg.PlanTruncate(dialect.Object{Schema: "public", Name: "users"}, true)
	require.NoError(t, err)
	require.Len(t, plan.Statements, 1)
	assert.Equal(t, `TRUNCATE TABLE "public"."users" RESTART IDENTITY CASCADE`, plan.Statements[0].SQL)

	_, err = pg.PlanTruncate(dialect.Object{}, false)
	assert.True(t, errs.IsInvalidInput(err))

	my := schema.NewPlanner(&dialect.MysqlDialect{}, zerolog.Nop())
	_, err = my.PlanTruncate(dialect.Object{Name: "users"}, true)
	assert.True(t, errs.IsUnsupportedOperation(err))
}
