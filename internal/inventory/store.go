package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound     = errors.New("tech not found")
	ErrUnitNotFound = errors.New("unit not found")
)

type Tech struct {
	ID              int
	InventoryNumber int
	Name            string
	Model           string
	AcquisitionDate string
	Price           int
	// UnitID is 0 when the tech is not assigned to a unit.
	UnitID int
}

// Unit is an organisational unit tech can be assigned to.
type Unit struct {
	ID   int
	Name string
}

// Store reads and writes tech rows through a shared *sql.DB pool.
type Store struct {
	db *sql.DB
}

// Open opens the sqlite database at path with a bounded pool.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(15)
	return db, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS unit (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT    NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS tech (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	inventory_number INTEGER NOT NULL UNIQUE,
	name             TEXT    NOT NULL,
	model            TEXT    NOT NULL,
	acquisition_date TEXT    NOT NULL,
	price            INTEGER NOT NULL,
	unit_id          INTEGER REFERENCES unit (id)
)`,
}

// Migrate creates the tables and adds unit_id to a tech table created
// before units existed.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('tech') WHERE name = 'unit_id'`).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		_, err = s.db.ExecContext(ctx, `ALTER TABLE tech ADD COLUMN unit_id INTEGER REFERENCES unit (id)`)
	}
	return err
}

const techColumns = `id, inventory_number, name, model, acquisition_date, price, unit_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTech(row scanner) (Tech, error) {
	var (
		t    Tech
		unit sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.InventoryNumber, &t.Name, &t.Model, &t.AcquisitionDate, &t.Price, &unit)
	t.UnitID = int(unit.Int64)
	return t, err
}

func nullUnit(id int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

func (s *Store) List(ctx context.Context) ([]Tech, error) {
	return s.queryTech(ctx, `SELECT `+techColumns+` FROM tech ORDER BY id`)
}

// ListByUnit returns the tech assigned to unit.
func (s *Store) ListByUnit(ctx context.Context, unit int) ([]Tech, error) {
	return s.queryTech(ctx, `SELECT `+techColumns+` FROM tech WHERE unit_id = ? ORDER BY id`, unit)
}

func (s *Store) queryTech(ctx context.Context, query string, args ...any) ([]Tech, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tech
	for rows.Next() {
		t, err := scanTech(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int) (Tech, error) {
	t, err := scanTech(s.db.QueryRowContext(ctx, `SELECT `+techColumns+` FROM tech WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Tech{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return t, err
}

func (s *Store) Insert(ctx context.Context, t *Tech) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tech (inventory_number, name, model, acquisition_date, price, unit_id) VALUES (?, ?, ?, ?, ?, ?)`,
		t.InventoryNumber, t.Name, t.Model, t.AcquisitionDate, t.Price, nullUnit(t.UnitID))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = int(id)
	return nil
}

func (s *Store) Update(ctx context.Context, t Tech) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tech SET inventory_number = ?, name = ?, model = ?, acquisition_date = ?, price = ?, unit_id = ? WHERE id = ?`,
		t.InventoryNumber, t.Name, t.Model, t.AcquisitionDate, t.Price, nullUnit(t.UnitID), t.ID)
	if err != nil {
		return err
	}
	return expectOne(res, t.ID)
}

func (s *Store) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tech WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, id)
}

func (s *Store) ListUnits(ctx context.Context) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM unit ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) GetUnit(ctx context.Context, id int) (Unit, error) {
	var u Unit
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM unit WHERE id = ?`, id).Scan(&u.ID, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Unit{}, fmt.Errorf("%w: id %d", ErrUnitNotFound, id)
	}
	return u, err
}

func (s *Store) InsertUnit(ctx context.Context, u *Unit) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO unit (name) VALUES (?)`, u.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = int(id)
	return nil
}

func expectOne(res sql.Result, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}
