package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// offlineAfter is how long a robot may go without a status report before
// the controller treats it as offline.
const offlineAfter = time.Minute

type DB struct {
	SQL  *sql.DB
	Path string
}

type Robot struct {
	ID            int64          `json:"id"`
	AgentID       string         `json:"agent_id"`
	Status        string         `json:"status"`
	Battery       float64        `json:"battery"`
	X             float64        `json:"x"`
	Y             float64        `json:"y"`
	LastSeen      time.Time      `json:"last_seen"`
	Notes         string         `json:"notes"`
	InstallConfig *InstallConfig `json:"install_config,omitempty"`
}

type InstallConfig struct {
	Address string `json:"address"`
	User    string `json:"user"`
	SSHKey  string `json:"ssh_key"`
}

type Mission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ConfigYAML  string    `json:"config_yaml"`
	CreatedAt   time.Time `json:"created_at"`
}

type Run struct {
	ID         string     `json:"id"`
	AgentID    string     `json:"agent_id"`
	Mission    string     `json:"mission"`
	Result     string     `json:"result"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type TickRecord struct {
	RunID        string    `json:"run_id"`
	Seq          int64     `json:"seq"`
	Status       string    `json:"status"`
	SnapshotJSON string    `json:"snapshot_json"`
	RecordedAt   time.Time `json:"recorded_at"`
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, err
	}
	// modernc SQLite creates new connections per goroutine unless capped; keep it at 1
	// to avoid unexpected SQLITE_BUSY errors since we don't need parallel writers yet.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &DB{SQL: db, Path: path}, nil
}

func (d *DB) Close() error {
	return d.SQL.Close()
}

func migrate(db *sql.DB) error {
	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS robots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_id TEXT NOT NULL UNIQUE,
			status TEXT,
			battery REAL,
			x REAL,
			y REAL,
			last_seen TIMESTAMP,
			notes TEXT,
			ssh_address TEXT,
			ssh_user TEXT,
			ssh_key TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS missions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			config_yaml TEXT,
			created_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			mission TEXT,
			result TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			status TEXT,
			snapshot_json TEXT,
			recorded_at TIMESTAMP,
			PRIMARY KEY (run_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func buildInstallConfig(addr, user, key sql.NullString) *InstallConfig {
	if !addr.Valid && !user.Valid && !key.Valid {
		return nil
	}
	cfg := InstallConfig{}
	if addr.Valid {
		cfg.Address = addr.String
	}
	if user.Valid {
		cfg.User = user.String
	}
	if key.Valid {
		cfg.SSHKey = key.String
	}
	if cfg.Address == "" && cfg.User == "" && cfg.SSHKey == "" {
		return nil
	}
	return &cfg
}

func (d *DB) ListRobots(ctx context.Context) ([]Robot, error) {
	rows, err := d.SQL.QueryContext(ctx, `SELECT id, agent_id, status, battery, x, y, last_seen, notes, ssh_address, ssh_user, ssh_key
FROM robots ORDER BY agent_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var robots []Robot
	for rows.Next() {
		r, err := scanRobot(rows.Scan)
		if err != nil {
			return nil, err
		}
		robots = append(robots, r)
	}
	if robots == nil {
		robots = []Robot{}
	}
	return robots, rows.Err()
}

func (d *DB) GetRobot(ctx context.Context, agentID string) (*Robot, error) {
	row := d.SQL.QueryRowContext(ctx, `SELECT id, agent_id, status, battery, x, y, last_seen, notes, ssh_address, ssh_user, ssh_key
FROM robots WHERE agent_id = ?`, agentID)
	r, err := scanRobot(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func scanRobot(scan func(dest ...any) error) (Robot, error) {
	var r Robot
	var status, notes sql.NullString
	var battery, x, y sql.NullFloat64
	var lastSeen sql.NullTime
	var sshAddr, sshUser, sshKey sql.NullString
	if err := scan(&r.ID, &r.AgentID, &status, &battery, &x, &y, &lastSeen, &notes, &sshAddr, &sshUser, &sshKey); err != nil {
		return Robot{}, err
	}
	if status.Valid {
		r.Status = status.String
	}
	if battery.Valid {
		r.Battery = battery.Float64
	}
	if x.Valid {
		r.X = x.Float64
	}
	if y.Valid {
		r.Y = y.Float64
	}
	if lastSeen.Valid {
		r.LastSeen = lastSeen.Time
	}
	if notes.Valid {
		r.Notes = notes.String
	}
	r.InstallConfig = buildInstallConfig(sshAddr, sshUser, sshKey)
	if r.LastSeen.IsZero() {
		r.Status = "unknown"
	} else if time.Since(r.LastSeen) > offlineAfter {
		r.Status = "offline"
	}
	return r, nil
}

func (d *DB) UpsertRobotStatus(ctx context.Context, agentID, status string, battery, x, y float64) error {
	if agentID == "" {
		return errors.New("agent id required")
	}
	_, err := d.SQL.ExecContext(ctx, `INSERT INTO robots (agent_id, status, battery, x, y, last_seen) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(agent_id) DO UPDATE SET
	status=excluded.status,
	battery=excluded.battery,
	x=excluded.x,
	y=excluded.y,
	last_seen=excluded.last_seen`, agentID, status, battery, x, y, time.Now().UTC())
	return err
}

func (d *DB) SetRobotInstallConfig(ctx context.Context, agentID string, cfg InstallConfig) error {
	if agentID == "" {
		return errors.New("agent id required")
	}
	_, err := d.SQL.ExecContext(ctx, `INSERT INTO robots (agent_id, ssh_address, ssh_user, ssh_key) VALUES (?, ?, ?, ?)
ON CONFLICT(agent_id) DO UPDATE SET
	ssh_address=excluded.ssh_address,
	ssh_user=excluded.ssh_user,
	ssh_key=excluded.ssh_key`, agentID, cfg.Address, cfg.User, cfg.SSHKey)
	return err
}

func (d *DB) SetRobotNotes(ctx context.Context, agentID, notes string) error {
	res, err := d.SQL.ExecContext(ctx, `UPDATE robots SET notes = ? WHERE agent_id = ?`, notes, agentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("robot not found")
	}
	return nil
}

func (d *DB) DeleteRobot(ctx context.Context, agentID string) error {
	_, err := d.SQL.ExecContext(ctx, `DELETE FROM robots WHERE agent_id = ?`, agentID)
	return err
}

func (d *DB) ListMissions(ctx context.Context) ([]Mission, error) {
	rows, err := d.SQL.QueryContext(ctx, `SELECT id, name, description, config_yaml, created_at FROM missions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var missions []Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	if missions == nil {
		missions = []Mission{}
	}
	return missions, rows.Err()
}

func (d *DB) GetMission(ctx context.Context, id int64) (*Mission, error) {
	row := d.SQL.QueryRowContext(ctx, `SELECT id, name, description, config_yaml, created_at FROM missions WHERE id = ?`, id)
	m, err := scanMission(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func scanMission(scan func(dest ...any) error) (Mission, error) {
	var m Mission
	var desc, cfg sql.NullString
	var created sql.NullTime
	if err := scan(&m.ID, &m.Name, &desc, &cfg, &created); err != nil {
		return Mission{}, err
	}
	if desc.Valid {
		m.Description = desc.String
	}
	if cfg.Valid {
		m.ConfigYAML = cfg.String
	}
	if created.Valid {
		m.CreatedAt = created.Time
	}
	return m, nil
}

func (d *DB) CreateMission(ctx context.Context, name, description, configYAML string) (int64, error) {
	if name == "" {
		return 0, errors.New("mission name required")
	}
	res, err := d.SQL.ExecContext(ctx, `INSERT INTO missions (name, description, config_yaml, created_at) VALUES (?, ?, ?, ?)`,
		name, description, configYAML, time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, errors.New("mission name already exists")
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) UpdateMission(ctx context.Context, id int64, name, description, configYAML string) error {
	if name == "" {
		return errors.New("mission name required")
	}
	res, err := d.SQL.ExecContext(ctx, `UPDATE missions SET name = ?, description = ?, config_yaml = ? WHERE id = ?`,
		name, description, configYAML, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("mission not found")
	}
	return nil
}

func (d *DB) DeleteMission(ctx context.Context, id int64) error {
	_, err := d.SQL.ExecContext(ctx, `DELETE FROM missions WHERE id = ?`, id)
	return err
}

func (d *DB) CreateRun(ctx context.Context, id, agentID, mission string) error {
	if id == "" || agentID == "" {
		return errors.New("run id and agent id required")
	}
	_, err := d.SQL.ExecContext(ctx, `INSERT INTO runs (id, agent_id, mission, result, started_at) VALUES (?, ?, ?, '', ?)
ON CONFLICT(id) DO NOTHING`, id, agentID, mission, time.Now().UTC())
	return err
}

func (d *DB) FinishRun(ctx context.Context, id, result string) error {
	_, err := d.SQL.ExecContext(ctx, `UPDATE runs SET result = ?, finished_at = ? WHERE id = ?`,
		result, time.Now().UTC(), id)
	return err
}

func (d *DB) ListRuns(ctx context.Context, agentID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, agent_id, mission, result, started_at, finished_at FROM runs`
	args := []any{}
	if agentID != "" {
		q += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	q += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)
	rows, err := d.SQL.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		var mission, result sql.NullString
		var started, finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.AgentID, &mission, &result, &started, &finished); err != nil {
			return nil, err
		}
		if mission.Valid {
			r.Mission = mission.String
		}
		if result.Valid {
			r.Result = result.String
		}
		if started.Valid {
			r.StartedAt = started.Time
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	if runs == nil {
		runs = []Run{}
	}
	return runs, rows.Err()
}

func (d *DB) RecordTick(ctx context.Context, runID string, seq int64, status, snapshotJSON string) error {
	if runID == "" {
		return errors.New("run id required")
	}
	_, err := d.SQL.ExecContext(ctx, `INSERT INTO ticks (run_id, seq, status, snapshot_json, recorded_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(run_id, seq) DO UPDATE SET status=excluded.status, snapshot_json=excluded.snapshot_json`,
		runID, seq, status, snapshotJSON, time.Now().UTC())
	return err
}

func (d *DB) ListTicks(ctx context.Context, runID string, afterSeq int64, limit int) ([]TickRecord, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := d.SQL.QueryContext(ctx, `SELECT run_id, seq, status, snapshot_json, recorded_at
FROM ticks WHERE run_id = ? AND seq > ? ORDER BY seq LIMIT ?`, runID, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ticks []TickRecord
	for rows.Next() {
		var t TickRecord
		var status, snap sql.NullString
		var recorded sql.NullTime
		if err := rows.Scan(&t.RunID, &t.Seq, &status, &snap, &recorded); err != nil {
			return nil, err
		}
		if status.Valid {
			t.Status = status.String
		}
		if snap.Valid {
			t.SnapshotJSON = snap.String
		}
		if recorded.Valid {
			t.RecordedAt = recorded.Time
		}
		ticks = append(ticks, t)
	}
	if ticks == nil {
		ticks = []TickRecord{}
	}
	return ticks, rows.Err()
}

func (d *DB) LatestTick(ctx context.Context, runID string) (*TickRecord, error) {
	row := d.SQL.QueryRowContext(ctx, `SELECT run_id, seq, status, snapshot_json, recorded_at
FROM ticks WHERE run_id = ? ORDER BY seq DESC LIMIT 1`, runID)
	var t TickRecord
	var status, snap sql.NullString
	var recorded sql.NullTime
	if err := row.Scan(&t.RunID, &t.Seq, &status, &snap, &recorded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if status.Valid {
		t.Status = status.String
	}
	if snap.Valid {
		t.SnapshotJSON = snap.String
	}
	if recorded.Valid {
		t.RecordedAt = recorded.Time
	}
	return &t, nil
}
