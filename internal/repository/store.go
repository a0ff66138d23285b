package repository

import (
	"context"
	"errors"

	"github.com/minebank/bank-service/internal/models"
)

// Common storage errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateResource = errors.New("resource already exists")
	ErrDuplicateClient   = errors.New("client already exists")
	ErrDuplicateUser     = errors.New("user already exists")
)

// Tx is the set of operations available inside a store transaction. Inside
// Update transactions single-row reads lock the row; inside View
// transactions they are plain snapshot reads.
type Tx interface {
	Resource(name string) (*models.Resource, error)
	Resources() ([]*models.Resource, error)
	CreateResource(r *models.Resource) error
	SaveResource(r *models.Resource) error
	DeleteResource(name string) error

	Client(name string) (*models.Client, error)
	Clients() ([]*models.Client, error)
	CreateClient(c *models.Client) error
	SaveClient(c *models.Client) error
	DeleteClient(name string) error

	BankBalance() (float64, error)
	SetBankBalance(balance float64) error

	CreateDeposit(d *models.Deposit) error
	Deposit(id int64) (*models.Deposit, error)
	DepositsByClient(name string) ([]*models.Deposit, error)
	ActiveDeposits() ([]*models.Deposit, error)
	SaveDeposit(d *models.Deposit) error

	CreateCredit(c *models.Credit) error
	Credit(id int64) (*models.Credit, error)
	CreditsByClient(name string) ([]*models.Credit, error)
	ActiveCredits() ([]*models.Credit, error)
	SaveCredit(c *models.Credit) error

	AddPriceHistory(e *models.PriceHistoryEntry) error
	PriceHistory(resource string, limit int) ([]*models.PriceHistoryEntry, error)

	UserByLogin(login string) (*models.User, error)
	CreateUser(u *models.User) error
}

// Store serializes access to the ledger. Update runs fn in a write
// transaction: all mutations are applied atomically or not at all. View
// runs fn against a consistent read snapshot.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
