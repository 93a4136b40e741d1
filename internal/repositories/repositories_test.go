package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/VladChristmas/bot/internal/database"
)

// newTestDB opens a fresh in-memory sqlite database per test. The
// name is derived from the test so parallel packages never share it.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := database.Open("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
