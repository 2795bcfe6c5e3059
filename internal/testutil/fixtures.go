package testutil

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// T is the subset of *testing.T and *check.C the fixture helpers use.
type T interface {
	Fatalf(format string, args ...any)
}

func helper(t T) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
}

// WriteCSV writes header and records to dir/name and returns the path.
func WriteCSV(t T, dir, name string, header []string, records [][]string) string {
	helper(t)
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := w.WriteAll(records); err != nil {
		t.Fatalf("write records: %v", err)
	}
	return path
}

// PatientRecords returns n records of the form {ID, Name} starting at id
// from, e.g. {"3", "Patient 3"}.
func PatientRecords(from, n int) [][]string {
	out := make([][]string, n)
	for i := range out {
		id := strconv.Itoa(from + i)
		out[i] = []string{id, "Patient " + id}
	}
	return out
}

// WriteSQLite creates a SQLite database at dir/name, runs the statements
// in order and returns the path.
func WriteSQLite(t T, dir, name string, stmts ...string) string {
	helper(t)
	path := filepath.Join(dir, name)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer db.Close()
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return path
}
