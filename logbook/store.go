package logbook

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Store keeps a local SQLite mirror of every committed record, so
// growth history survives spreadsheet outages and feeds the report
// without a network round-trip.
type Store struct {
	*sql.DB
}

// OpenStore opens (creating if needed) the mirror database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS measurements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			logged_at TIMESTAMP NOT NULL,
			height_mm DOUBLE NOT NULL,
			leaf_count INTEGER NOT NULL,
			area_mm2 DOUBLE NOT NULL,
			image_ref TEXT,
			notes TEXT
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db}, nil
}

// Insert mirrors a committed record.
func (s *Store) Insert(r Record) error {
	_, err := s.Exec(
		"INSERT INTO measurements (logged_at, height_mm, leaf_count, area_mm2, image_ref, notes) VALUES (?, ?, ?, ?, ?, ?)",
		r.Timestamp.Format(time.RFC3339), r.HeightMM, r.LeafCount, r.AreaMM2, r.ImageRef, r.Notes,
	)
	return err
}

// Records returns all mirrored records in insertion order.
func (s *Store) Records() ([]Record, error) {
	rows, err := s.Query(
		"SELECT logged_at, height_mm, leaf_count, area_mm2, image_ref, notes FROM measurements ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var ts string
		if err := rows.Scan(&ts, &r.HeightMM, &r.LeafCount, &r.AreaMM2, &r.ImageRef, &r.Notes); err != nil {
			return nil, err
		}
		if parsed, perr := time.Parse(time.RFC3339, ts); perr == nil {
			r.Timestamp = parsed
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
