package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// SQLiteSuite provides a SQLite database and a scratch directory to tests
// that run whole dumps. Each test gets a fresh database.
type SQLiteSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string

	// DBPath is the database file of the current test
	DBPath string
	// DB is an open read-write handle on DBPath
	DB *sql.DB
}

// SetupSuite runs before all tests in the suite
func (s *SQLiteSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
}

// TearDownSuite runs after all tests in the suite
func (s *SQLiteSuite) TearDownSuite() {
	s.cancel()
}

// SetupTest creates the database of the next test.
func (s *SQLiteSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	s.DBPath = filepath.Join(s.tempDir, "fixture.db")

	db, err := sql.Open("sqlite", "file:"+s.DBPath)
	require.NoError(s.T(), err)
	s.DB = db
}

// TearDownTest closes the database of the finished test.
func (s *SQLiteSuite) TearDownTest() {
	if s.DB != nil {
		_ = s.DB.Close()
	}
}

// Context returns the suite context
func (s *SQLiteSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the scratch directory of the current test
func (s *SQLiteSuite) TempDir() string {
	return s.tempDir
}

// Exec runs stmts against the database of the current test.
func (s *SQLiteSuite) Exec(stmts ...string) {
	for _, stmt := range stmts {
		_, err := s.DB.ExecContext(s.ctx, stmt)
		require.NoError(s.T(), err, stmt)
	}
}

// ReadFile returns the content of a file below the scratch directory.
func (s *SQLiteSuite) ReadFile(rel ...string) string {
	data, err := os.ReadFile(filepath.Join(append([]string{s.tempDir}, rel...)...))
	require.NoError(s.T(), err)
	return string(data)
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}
