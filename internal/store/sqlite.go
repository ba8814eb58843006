package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS vessels (
	mmsi         INTEGER PRIMARY KEY,
	name         TEXT,
	callsign     TEXT,
	imo          INTEGER,
	ship_type    INTEGER,
	destination  TEXT,
	eta          TEXT,
	country      TEXT,
	base_station INTEGER NOT NULL DEFAULT 0,
	last_seen    TEXT
);

CREATE TABLE IF NOT EXISTS positions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	mmsi        INTEGER NOT NULL,
	source_id   TEXT,
	timestamp   TEXT NOT NULL,
	raw_lat     REAL NOT NULL,
	raw_lon     REAL NOT NULL,
	display_lat REAL,
	display_lon REAL,
	valid       INTEGER NOT NULL,
	speed       REAL,
	course      REAL,
	heading     INTEGER,
	nav_status  INTEGER
);

CREATE INDEX IF NOT EXISTS idx_positions_mmsi ON positions (mmsi);
CREATE INDEX IF NOT EXISTS idx_positions_mmsi_ts ON positions (mmsi, timestamp);
`

// SQLite implements Store on a single database file (or ":memory:").
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if necessary creates) the database and applies the
// schema. WAL mode keeps concurrent adapter writes from blocking readers.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc's driver serializes per connection; a single connection
	// sidesteps table-lock errors from concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) AppendPosition(ctx context.Context, p *PositionRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
			(mmsi, source_id, timestamp, raw_lat, raw_lon, display_lat, display_lon,
			 valid, speed, course, heading, nav_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.MMSI, p.SourceID, p.Timestamp.UTC().Format(time.RFC3339Nano),
		p.RawLat, p.RawLon, p.DisplayLat, p.DisplayLon,
		boolInt(p.Valid), p.Speed, p.Course, p.Heading, p.NavStatus)
	if err != nil {
		return 0, fmt.Errorf("failed to append position: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLite) BackfillDisplay(ctx context.Context, mmsi uint32, before time.Time, lat, lon float64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET display_lat = ?, display_lon = ?
		WHERE mmsi = ? AND display_lat IS NULL AND timestamp <= ?`,
		lat, lon, mmsi, before.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to backfill positions: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLite) LastValidPosition(ctx context.Context, mmsi uint32) (*PositionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mmsi, source_id, timestamp, raw_lat, raw_lon,
		       display_lat, display_lon, valid, speed, course, heading, nav_status
		FROM positions
		WHERE mmsi = ? AND valid = 1
		ORDER BY timestamp DESC LIMIT 1`, mmsi)
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *SQLite) Positions(ctx context.Context, mmsi uint32, limit int) ([]*PositionRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mmsi, source_id, timestamp, raw_lat, raw_lon,
		       display_lat, display_lon, valid, speed, course, heading, nav_status
		FROM positions
		WHERE mmsi = ? AND display_lat IS NOT NULL
		ORDER BY timestamp ASC LIMIT ?`, mmsi, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var out []*PositionRecord
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) UpsertVessel(ctx context.Context, v *VesselRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vessels
			(mmsi, name, callsign, imo, ship_type, destination, eta, country, base_station, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mmsi) DO UPDATE SET
			name = excluded.name,
			callsign = excluded.callsign,
			imo = excluded.imo,
			ship_type = excluded.ship_type,
			destination = excluded.destination,
			eta = excluded.eta,
			country = excluded.country,
			base_station = excluded.base_station,
			last_seen = excluded.last_seen`,
		v.MMSI, v.Name, v.Callsign, v.IMO, v.ShipType, v.Destination, v.ETA,
		v.Country, boolInt(v.BaseStation), v.LastSeen.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert vessel: %w", err)
	}
	return nil
}

func (s *SQLite) Vessel(ctx context.Context, mmsi uint32) (*VesselRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT mmsi, name, callsign, imo, ship_type, destination, eta, country, base_station, last_seen
		FROM vessels WHERE mmsi = ?`, mmsi)

	var v VesselRecord
	var base int
	var lastSeen string
	err := row.Scan(&v.MMSI, &v.Name, &v.Callsign, &v.IMO, &v.ShipType,
		&v.Destination, &v.ETA, &v.Country, &base, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vessel: %w", err)
	}
	v.BaseStation = base != 0
	if ts, err := time.Parse(time.RFC3339Nano, lastSeen); err == nil {
		v.LastSeen = ts
	}
	return &v, nil
}

func (s *SQLite) PurgeVessel(ctx context.Context, mmsi uint32) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE mmsi = ?`, mmsi); err != nil {
		return fmt.Errorf("failed to purge positions: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vessels WHERE mmsi = ?`, mmsi); err != nil {
		return fmt.Errorf("failed to purge vessel: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(r rowScanner) (*PositionRecord, error) {
	var p PositionRecord
	var ts string
	var valid int
	err := r.Scan(&p.ID, &p.MMSI, &p.SourceID, &ts, &p.RawLat, &p.RawLon,
		&p.DisplayLat, &p.DisplayLon, &valid, &p.Speed, &p.Course, &p.Heading, &p.NavStatus)
	if err != nil {
		return nil, err
	}
	p.Valid = valid != 0
	if t, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
		p.Timestamp = t
	}
	return &p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
