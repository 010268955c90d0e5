package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"thegrind.cafe/internal/persistence/snapshot"
	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/tuning"
	"thegrind.cafe/internal/sim/world"
)

// ErrNotFound is returned by GetSave for an unknown save id.
var ErrNotFound = errors.New("indexdb: not found")

// SQLiteIndex stores saves synchronously and indexes day summaries,
// snapshots and archives through an async writer so the world loop never
// waits on disk.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropDay      atomic.Uint64
	dropSnapshot atomic.Uint64
	dropArchive  atomic.Uint64
}

type reqKind int

const (
	reqDay reqKind = iota + 1
	reqSnapshot
	reqArchive
)

type req struct {
	kind reqKind

	saveID   string
	day      world.DaySummary
	snapshot SnapshotRow
	archive  ArchiveRow
}

type SaveRow struct {
	SaveID    string
	Version   int
	Tick      uint64
	Cash      float64
	UpdatedAt string
}

type DayRow struct {
	SaveID string
	world.DaySummary
}

type SnapshotRow struct {
	SaveID     string
	Tick       uint64
	Day        int
	DayEnd     bool
	Path       string
	Cash       float64
	Popularity float64
	Staff      int
}

type ArchiveRow struct {
	SaveID     string
	Week       int
	EndTick    uint64
	Path       string
	RecordedAt string
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropDayTotal      uint64
	DropSnapshotTotal uint64
	DropArchiveTotal  uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			save_id TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			cash REAL NOT NULL,
			state_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS days (
			save_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			revenue REAL NOT NULL,
			expenses REAL NOT NULL,
			wages REAL NOT NULL,
			cafe_costs REAL NOT NULL,
			profit REAL NOT NULL,
			orders INTEGER NOT NULL,
			orders_change INTEGER NOT NULL,
			popularity REAL NOT NULL,
			popularity_change REAL NOT NULL,
			cash REAL NOT NULL,
			messages_json TEXT NOT NULL,
			PRIMARY KEY (save_id, day)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_days_save_tick ON days(save_id, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			save_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			day INTEGER NOT NULL,
			day_end INTEGER NOT NULL,
			path TEXT NOT NULL,
			cash REAL NOT NULL,
			popularity REAL NOT NULL,
			staff INTEGER NOT NULL,
			PRIMARY KEY (save_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS archives (
			save_id TEXT NOT NULL,
			week INTEGER NOT NULL,
			end_tick INTEGER NOT NULL,
			snapshot_path TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (save_id, week)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropDayTotal:      s.dropDay.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropArchiveTotal:  s.dropArchive.Load(),
	}
}

// PutSave writes the latest state of a save, replacing the previous one.
func (s *SQLiteIndex) PutSave(ctx context.Context, saveID string, st world.State) error {
	if saveID == "" {
		return errors.New("indexdb: empty save id")
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO saves(save_id,version,tick,cash,state_json,updated_at) VALUES(?,?,?,?,?,?)`,
		saveID, st.Version, int64(st.Tick), st.Cash, string(raw), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetSave returns the raw state JSON of a save. Callers run it through
// world.Migrate.
func (s *SQLiteIndex) GetSave(ctx context.Context, saveID string) ([]byte, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM saves WHERE save_id = ?`, saveID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

func (s *SQLiteIndex) DeleteSave(ctx context.Context, saveID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE save_id = ?`, saveID)
	return err
}

func (s *SQLiteIndex) ListSaves(ctx context.Context) ([]SaveRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT save_id,version,tick,cash,updated_at FROM saves ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaveRow
	for rows.Next() {
		var r SaveRow
		var tick int64
		if err := rows.Scan(&r.SaveID, &r.Version, &tick, &r.Cash, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListDays returns the most recent day summaries of a save, newest first.
// limit <= 0 means all.
func (s *SQLiteIndex) ListDays(ctx context.Context, saveID string, limit int) ([]DayRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT save_id,day,tick,revenue,expenses,wages,cafe_costs,profit,orders,orders_change,popularity,popularity_change,cash,messages_json
		FROM days WHERE save_id = ? ORDER BY day DESC LIMIT ?`, saveID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DayRow
	for rows.Next() {
		var r DayRow
		var tick int64
		var msgs string
		if err := rows.Scan(&r.SaveID, &r.Day, &tick, &r.Revenue, &r.Expenses, &r.Wages, &r.CafeCosts, &r.Profit,
			&r.Orders, &r.OrdersChange, &r.Popularity, &r.PopularityChange, &r.Cash, &msgs); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		if err := json.Unmarshal([]byte(msgs), &r.Messages); err != nil {
			return nil, fmt.Errorf("days.messages_json: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) ListSnapshots(ctx context.Context, saveID string) ([]SnapshotRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT save_id,tick,day,day_end,path,cash,popularity,staff FROM snapshots WHERE save_id = ? ORDER BY tick`, saveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var tick int64
		if err := rows.Scan(&r.SaveID, &tick, &r.Day, &r.DayEnd, &r.Path, &r.Cash, &r.Popularity, &r.Staff); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; the JSONL day log remains the source of truth.
		drops.Add(1)
	}
}

func (s *SQLiteIndex) RecordDay(saveID string, d world.DaySummary) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqDay, saveID: saveID, day: d}, &s.dropDay)
}

func (s *SQLiteIndex) RecordSnapshot(path string, h snapshot.Header, st world.State) {
	if s == nil {
		return
	}
	r := SnapshotRow{
		SaveID:     h.SaveID,
		Tick:       h.Tick,
		Day:        h.Day,
		DayEnd:     h.DayEnd,
		Path:       path,
		Cash:       st.Cash,
		Popularity: st.Popularity,
		Staff:      len(st.Staff),
	}
	s.enqueue(req{kind: reqSnapshot, saveID: h.SaveID, snapshot: r}, &s.dropSnapshot)
}

func (s *SQLiteIndex) RecordArchive(saveID string, week int, endTick uint64, archivedPath string) {
	if s == nil || week <= 0 || archivedPath == "" {
		return
	}
	r := ArchiveRow{
		SaveID:     saveID,
		Week:       week,
		EndTick:    endTick,
		Path:       archivedPath,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.enqueue(req{kind: reqArchive, saveID: saveID, archive: r}, &s.dropArchive)
}

// DayLedger adapts the index to world.SignalLogger for one save: every
// DAY_ENDED signal becomes a days row.
func (s *SQLiteIndex) DayLedger(saveID string) world.SignalLogger {
	return dayLedger{s: s, saveID: saveID}
}

type dayLedger struct {
	s      *SQLiteIndex
	saveID string
}

func (l dayLedger) WriteSignal(sig world.Signal) error {
	if sig.Kind == world.SignalDayEnded && sig.Day != nil {
		l.s.RecordDay(l.saveID, *sig.Day)
	}
	return nil
}

// UpsertCatalogs stores the catalogs and tuning the server runs with, so a
// ledger can be read against the numbers that produced it.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	add := func(name, digest string, v any) {
		if b, err := json.Marshal(v); err == nil {
			rows = append(rows, kv{name: name, digest: digest, json: b})
		}
	}
	add("menu", cats.Menu.Digest, cats.Menu.Items)
	add("ingredients", cats.Ingredients.Digest, cats.Ingredients.Items)
	add("equipment", cats.Equipment.Digest, cats.Equipment.Items)
	add("amenities", cats.Amenities.Digest, cats.Amenities.Items)
	add("quests", cats.Quests.Digest, cats.Quests.Items)
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the stored digest of one catalog table.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return d, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertDay, _ := s.db.Prepare(`INSERT OR REPLACE INTO days(save_id,day,tick,revenue,expenses,wages,cafe_costs,profit,orders,orders_change,popularity,popularity_change,cash,messages_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(save_id,tick,day,day_end,path,cash,popularity,staff) VALUES(?,?,?,?,?,?,?,?)`)
	insertArchive, _ := s.db.Prepare(`INSERT OR REPLACE INTO archives(save_id,week,end_tick,snapshot_path,recorded_at) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertDay, insertSnapshot, insertArchive} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 200
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(stmt *sql.Stmt, args ...any) {
		if stmt == nil {
			return
		}
		if _, err := tx.Stmt(stmt).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqDay:
			d := r.day
			msgs := d.Messages
			if msgs == nil {
				msgs = []string{}
			}
			mb, _ := json.Marshal(msgs)
			exec(insertDay, r.saveID, d.Day, int64(d.Tick), d.Revenue, d.Expenses, d.Wages, d.CafeCosts, d.Profit,
				d.Orders, d.OrdersChange, d.Popularity, d.PopularityChange, d.Cash, string(mb))
		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, sn.SaveID, int64(sn.Tick), sn.Day, sn.DayEnd, sn.Path, sn.Cash, sn.Popularity, sn.Staff)
		case reqArchive:
			a := r.archive
			exec(insertArchive, a.SaveID, a.Week, int64(a.EndTick), a.Path, a.RecordedAt)
		}
		// Synchronous save queries share the single connection, so an idle
		// queue never leaves a transaction open.
		if tx != nil && (len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
