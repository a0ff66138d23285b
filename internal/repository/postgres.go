package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/minebank/bank-service/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            SERIAL PRIMARY KEY,
	login         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user'
);
CREATE TABLE IF NOT EXISTS resources (
	id        SERIAL PRIMARY KEY,
	name      TEXT NOT NULL UNIQUE,
	amount    BIGINT NOT NULL,
	base_rate DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS client_balances (
	id      SERIAL PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	balance DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS bank_account (
	id      SERIAL PRIMARY KEY,
	balance DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS deposits (
	id              SERIAL PRIMARY KEY,
	client_name     TEXT NOT NULL,
	amount          DOUBLE PRECISION NOT NULL,
	interest_rate   DOUBLE PRECISION NOT NULL,
	days            INT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	due_date        TIMESTAMPTZ NOT NULL,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	interest_earned DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS credits (
	id            SERIAL PRIMARY KEY,
	client_name   TEXT NOT NULL,
	amount        DOUBLE PRECISION NOT NULL,
	interest_rate DOUBLE PRECISION NOT NULL,
	days          INT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	due_date      TIMESTAMPTZ NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	is_overdue    BOOLEAN NOT NULL DEFAULT FALSE,
	interest_owed DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS resource_price_history (
	id            SERIAL PRIMARY KEY,
	resource_name TEXT NOT NULL,
	price         DOUBLE PRECISION NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS resource_price_history_name_idx
	ON resource_price_history (resource_name, id DESC);
`

// PostgresStore implements Store on top of database/sql. Write transactions
// lock the rows they read (SELECT ... FOR UPDATE), so concurrent mutations
// against the same resource, client or the bank row serialize on the
// database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects, verifies the connection, creates missing
// tables and seeds the bank account row.
func NewPostgresStore(conn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM bank_account`).Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check bank account: %w", err)
	}
	if n == 0 {
		if _, err := db.Exec(`INSERT INTO bank_account (balance) VALUES ($1)`, DefaultBankBalance); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed bank account: %w", err)
		}
	}
	return &PostgresStore{db: db}, nil
}

// Update runs fn in a read-write transaction.
func (s *PostgresStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, fn, true)
}

// View runs fn in a read-only transaction.
func (s *PostgresStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, fn, false)
}

func (s *PostgresStore) run(ctx context.Context, fn func(tx Tx) error, write bool) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: !write})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&pgTx{tx: tx, write: write}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error { return s.db.Close() }

type pgTx struct {
	tx    *sql.Tx
	write bool
}

// lock appends a row lock to single-row queries inside write transactions.
func (t *pgTx) lock() string {
	if t.write {
		return " FOR UPDATE"
	}
	return ""
}

func isUnique(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (t *pgTx) Resource(name string) (*models.Resource, error) {
	r := &models.Resource{}
	query := `SELECT id, name, amount, base_rate FROM resources WHERE name = $1` + t.lock()
	err := t.tx.QueryRow(query, name).Scan(&r.ID, &r.Name, &r.Amount, &r.BaseRate)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find resource: %w", err)
	}
	return r, nil
}

func (t *pgTx) Resources() ([]*models.Resource, error) {
	rows, err := t.tx.Query(`SELECT id, name, amount, base_rate FROM resources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()
	var out []*models.Resource
	for rows.Next() {
		r := &models.Resource{}
		if err := rows.Scan(&r.ID, &r.Name, &r.Amount, &r.BaseRate); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *pgTx) CreateResource(r *models.Resource) error {
	query := `INSERT INTO resources (name, amount, base_rate) VALUES ($1, $2, $3) RETURNING id`
	err := t.tx.QueryRow(query, r.Name, r.Amount, r.BaseRate).Scan(&r.ID)
	if isUnique(err) {
		return ErrDuplicateResource
	}
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

func (t *pgTx) SaveResource(r *models.Resource) error {
	res, err := t.tx.Exec(`UPDATE resources SET amount = $1, base_rate = $2 WHERE name = $3`,
		r.Amount, r.BaseRate, r.Name)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}
	return requireRow(res)
}

func (t *pgTx) DeleteResource(name string) error {
	res, err := t.tx.Exec(`DELETE FROM resources WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	return requireRow(res)
}

func (t *pgTx) Client(name string) (*models.Client, error) {
	c := &models.Client{}
	query := `SELECT id, name, balance FROM client_balances WHERE name = $1` + t.lock()
	err := t.tx.QueryRow(query, name).Scan(&c.ID, &c.Name, &c.Balance)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return c, nil
}

func (t *pgTx) Clients() ([]*models.Client, error) {
	rows, err := t.tx.Query(`SELECT id, name, balance FROM client_balances ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()
	var out []*models.Client
	for rows.Next() {
		c := &models.Client{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *pgTx) CreateClient(c *models.Client) error {
	query := `INSERT INTO client_balances (name, balance) VALUES ($1, $2) RETURNING id`
	err := t.tx.QueryRow(query, c.Name, c.Balance).Scan(&c.ID)
	if isUnique(err) {
		return ErrDuplicateClient
	}
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (t *pgTx) SaveClient(c *models.Client) error {
	res, err := t.tx.Exec(`UPDATE client_balances SET balance = $1 WHERE name = $2`, c.Balance, c.Name)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return requireRow(res)
}

func (t *pgTx) DeleteClient(name string) error {
	res, err := t.tx.Exec(`DELETE FROM client_balances WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return requireRow(res)
}

func (t *pgTx) BankBalance() (float64, error) {
	var balance float64
	query := `SELECT balance FROM bank_account ORDER BY id LIMIT 1` + t.lock()
	if err := t.tx.QueryRow(query).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to read bank balance: %w", err)
	}
	return balance, nil
}

func (t *pgTx) SetBankBalance(balance float64) error {
	_, err := t.tx.Exec(`UPDATE bank_account SET balance = $1`, balance)
	if err != nil {
		return fmt.Errorf("failed to update bank balance: %w", err)
	}
	return nil
}

func (t *pgTx) CreateDeposit(d *models.Deposit) error {
	query := `
		INSERT INTO deposits (client_name, amount, interest_rate, days, created_at, due_date, is_active, interest_earned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := t.tx.QueryRow(query, d.ClientName, d.Amount, d.InterestRate, d.Days,
		d.CreatedAt, d.DueDate, d.IsActive, d.InterestEarned).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create deposit: %w", err)
	}
	return nil
}

const depositCols = `id, client_name, amount, interest_rate, days, created_at, due_date, is_active, interest_earned`

func scanDeposit(row interface{ Scan(...any) error }) (*models.Deposit, error) {
	d := &models.Deposit{}
	err := row.Scan(&d.ID, &d.ClientName, &d.Amount, &d.InterestRate, &d.Days,
		&d.CreatedAt, &d.DueDate, &d.IsActive, &d.InterestEarned)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (t *pgTx) Deposit(id int64) (*models.Deposit, error) {
	query := `SELECT ` + depositCols + ` FROM deposits WHERE id = $1` + t.lock()
	d, err := scanDeposit(t.tx.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find deposit: %w", err)
	}
	return d, nil
}

func (t *pgTx) depositList(query string, args ...any) ([]*models.Deposit, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()
	var out []*models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (t *pgTx) DepositsByClient(name string) ([]*models.Deposit, error) {
	return t.depositList(`SELECT `+depositCols+` FROM deposits WHERE client_name = $1 ORDER BY id`, name)
}

func (t *pgTx) ActiveDeposits() ([]*models.Deposit, error) {
	return t.depositList(`SELECT ` + depositCols + ` FROM deposits WHERE is_active ORDER BY id` + t.lock())
}

func (t *pgTx) SaveDeposit(d *models.Deposit) error {
	res, err := t.tx.Exec(`UPDATE deposits SET is_active = $1, interest_earned = $2 WHERE id = $3`,
		d.IsActive, d.InterestEarned, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update deposit: %w", err)
	}
	return requireRow(res)
}

func (t *pgTx) CreateCredit(c *models.Credit) error {
	query := `
		INSERT INTO credits (client_name, amount, interest_rate, days, created_at, due_date, is_active, is_overdue, interest_owed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := t.tx.QueryRow(query, c.ClientName, c.Amount, c.InterestRate, c.Days,
		c.CreatedAt, c.DueDate, c.IsActive, c.IsOverdue, c.InterestOwed).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create credit: %w", err)
	}
	return nil
}

const creditCols = `id, client_name, amount, interest_rate, days, created_at, due_date, is_active, is_overdue, interest_owed`

func scanCredit(row interface{ Scan(...any) error }) (*models.Credit, error) {
	c := &models.Credit{}
	err := row.Scan(&c.ID, &c.ClientName, &c.Amount, &c.InterestRate, &c.Days,
		&c.CreatedAt, &c.DueDate, &c.IsActive, &c.IsOverdue, &c.InterestOwed)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (t *pgTx) Credit(id int64) (*models.Credit, error) {
	query := `SELECT ` + creditCols + ` FROM credits WHERE id = $1` + t.lock()
	c, err := scanCredit(t.tx.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit: %w", err)
	}
	return c, nil
}

func (t *pgTx) creditList(query string, args ...any) ([]*models.Credit, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list credits: %w", err)
	}
	defer rows.Close()
	var out []*models.Credit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *pgTx) CreditsByClient(name string) ([]*models.Credit, error) {
	return t.creditList(`SELECT `+creditCols+` FROM credits WHERE client_name = $1 ORDER BY id`, name)
}

func (t *pgTx) ActiveCredits() ([]*models.Credit, error) {
	return t.creditList(`SELECT ` + creditCols + ` FROM credits WHERE is_active ORDER BY id` + t.lock())
}

func (t *pgTx) SaveCredit(c *models.Credit) error {
	res, err := t.tx.Exec(`UPDATE credits SET is_active = $1, is_overdue = $2, interest_owed = $3 WHERE id = $4`,
		c.IsActive, c.IsOverdue, c.InterestOwed, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update credit: %w", err)
	}
	return requireRow(res)
}

func (t *pgTx) AddPriceHistory(e *models.PriceHistoryEntry) error {
	query := `
		INSERT INTO resource_price_history (resource_name, price, timestamp)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := t.tx.QueryRow(query, e.ResourceName, e.Price, e.Timestamp).Scan(&e.ID); err != nil {
		return fmt.Errorf("failed to record price history: %w", err)
	}
	return nil
}

func (t *pgTx) PriceHistory(resource string, limit int) ([]*models.PriceHistoryEntry, error) {
	rows, err := t.tx.Query(`
		SELECT id, resource_name, price, timestamp
		FROM resource_price_history
		WHERE resource_name = $1
		ORDER BY id DESC
		LIMIT $2`, resource, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()
	var out []*models.PriceHistoryEntry
	for rows.Next() {
		e := &models.PriceHistoryEntry{}
		if err := rows.Scan(&e.ID, &e.ResourceName, &e.Price, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *pgTx) UserByLogin(login string) (*models.User, error) {
	u := &models.User{}
	query := `SELECT id, login, password_hash, role FROM users WHERE login = $1`
	err := t.tx.QueryRow(query, login).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Role)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

func (t *pgTx) CreateUser(u *models.User) error {
	query := `INSERT INTO users (login, password_hash, role) VALUES ($1, $2, $3) RETURNING id`
	err := t.tx.QueryRow(query, u.Login, u.PasswordHash, u.Role).Scan(&u.ID)
	if isUnique(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
