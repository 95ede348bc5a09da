package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// FixtureArchitects is the seed data written by BuildFixtureDB, keyed by Z_PK.
var FixtureArchitects = map[int64]string{
	1: "安藤忠雄",
	2: "隈研吾",
	3: "丹下健三",
}

// FixtureBuildingCount is the number of ZCDBUILDING rows in the fixture.
const FixtureBuildingCount = 4

const fixtureSchema = `
CREATE TABLE ZCDARCHITECT (
	Z_PK INTEGER PRIMARY KEY,
	ZAR_NAME TEXT NOT NULL,
	ZAR_NAME_ENG TEXT NOT NULL DEFAULT '',
	ZAR_BIRTHYEAR INTEGER NOT NULL DEFAULT 0,
	ZAR_DEATHYEAR INTEGER NOT NULL DEFAULT 0,
	ZAR_OFFICE TEXT NOT NULL DEFAULT '',
	ZAR_URL TEXT NOT NULL DEFAULT ''
);
CREATE TABLE ZCDBUILDING (
	Z_PK INTEGER PRIMARY KEY,
	ZBD_TITLE TEXT NOT NULL,
	ZBD_TITLE_ENG TEXT NOT NULL DEFAULT '',
	ZBD_ARCHITECT INTEGER NOT NULL DEFAULT 0,
	ZBD_PREFECTURE TEXT NOT NULL DEFAULT '',
	ZBD_ADDRESS TEXT NOT NULL DEFAULT '',
	ZBD_YEAR INTEGER NOT NULL DEFAULT 0,
	ZBD_LATITUDE REAL NOT NULL DEFAULT 0,
	ZBD_LONGITUDE REAL NOT NULL DEFAULT 0,
	ZBD_URL TEXT NOT NULL DEFAULT ''
);
CREATE INDEX idx_building_pref ON ZCDBUILDING (ZBD_PREFECTURE);
CREATE INDEX idx_building_architect ON ZCDBUILDING (ZBD_ARCHITECT);
`

// BuildFixtureDB creates a small architecture map database on disk and
// returns its path. The file lives under t.TempDir and is cleaned up with
// the test.
func BuildFixtureDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "archimap.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(fixtureSchema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}

	architects := []struct {
		pk                  int64
		name, eng           string
		birthYear, deathYear int64
	}{
		{1, "安藤忠雄", "Tadao Ando", 1941, 0},
		{2, "隈研吾", "Kengo Kuma", 1954, 0},
		{3, "丹下健三", "Kenzo Tange", 1913, 2005},
	}
	for _, a := range architects {
		if _, err := db.Exec(
			"INSERT INTO ZCDARCHITECT (Z_PK, ZAR_NAME, ZAR_NAME_ENG, ZAR_BIRTHYEAR, ZAR_DEATHYEAR) VALUES (?, ?, ?, ?, ?)",
			a.pk, a.name, a.eng, a.birthYear, a.deathYear,
		); err != nil {
			t.Fatalf("insert architect: %v", err)
		}
	}

	buildings := []struct {
		pk        int64
		title, eng string
		architect int64
		pref      string
		year      int64
		lat, lon  float64
	}{
		{1, "光の教会", "Church of the Light", 1, "大阪府", 1989, 34.8196, 135.4910},
		{2, "根津美術館", "Nezu Museum", 2, "東京都", 2009, 35.6622, 139.7174},
		{3, "国立代々木競技場", "Yoyogi National Gymnasium", 3, "東京都", 1964, 35.6668, 139.6994},
		{4, "地中美術館", "Chichu Art Museum", 1, "香川県", 2004, 34.4466, 133.9894},
	}
	for _, b := range buildings {
		if _, err := db.Exec(
			"INSERT INTO ZCDBUILDING (Z_PK, ZBD_TITLE, ZBD_TITLE_ENG, ZBD_ARCHITECT, ZBD_PREFECTURE, ZBD_YEAR, ZBD_LATITUDE, ZBD_LONGITUDE) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			b.pk, b.title, b.eng, b.architect, b.pref, b.year, b.lat, b.lon,
		); err != nil {
			t.Fatalf("insert building: %v", err)
		}
	}

	// VACUUM so the header page count matches the file size exactly.
	if _, err := db.Exec("VACUUM"); err != nil {
		t.Fatalf("vacuum fixture db: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close fixture db: %v", err)
	}
	return path
}

// FixtureSize returns the byte length of the fixture file.
func FixtureSize(t *testing.T, path string) int64 {
	t.Helper()
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat fixture db: %v", err)
	}
	return fi.Size()
}

// CorruptFixture returns the path to a file of n bytes that is not a SQLite
// database.
func CorruptFixture(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "not-a-db.bin")
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write corrupt fixture: %v", err)
	}
	return path
}
