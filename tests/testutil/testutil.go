// Package testutil provides shared test doubles and helpers for the prepacking
// service: a sqlmock-backed GORM database, testify mocks of the reference data
// and stock ledger ports, and stable ids for the usual facility, program and user.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// idNamespace seeds the deterministic ids handed out by NewTestUUID
var idNamespace = uuid.MustParse("3f1c2a4e-8d5b-4c7a-9e21-5b0d6f8a1c34")

// MockDB is a GORM handle on the postgres dialector whose SQL is checked by sqlmock
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB opens a MockDB. GORM's implicit transactions are disabled so that
// tests only expect the transactions the repository opens itself.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{DB: gormDB, Mock: mock, SqlDB: sqlDB}
}

// Close closes the mock connection
func (m *MockDB) Close() error {
	return m.SqlDB.Close()
}

// ExpectationsWereMet fails the test when an expected statement was not executed
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewTestUUID derives a stable id from seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(seed))
}

// TestFacilityID is the home facility of prepacking fixtures
func TestFacilityID() uuid.UUID {
	return NewTestUUID("facility/health-center")
}

// TestProgramID is the program of prepacking fixtures
func TestProgramID() uuid.UUID {
	return NewTestUUID("program/essential-meds")
}

// TestUserID is the storeroom user who submits and authorizes fixtures
func TestUserID() uuid.UUID {
	return NewTestUUID("user/storeroom-manager")
}
