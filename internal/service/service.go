package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/minebank/bank-service/internal/config"
	"github.com/minebank/bank-service/internal/models"
	"github.com/minebank/bank-service/internal/pricing"
	"github.com/minebank/bank-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// historyQueryCap bounds a single price-history read.
const historyQueryCap = 100

// Notifier receives out-of-band notifications about settlement events.
type Notifier interface {
	MaturityReport(depositsSettled, creditsSettled int, totalPaidOut float64)
	OverdueCredit(clientName string, amountDue float64)
}

// Service handles business logic. Every mutating operation runs inside a
// single store transaction; entity reads inside it follow the fixed lock
// order bank, then resource, then client.
type Service struct {
	store    repository.Store
	log      *logrus.Logger
	config   *config.Config
	notifier Notifier
	now      func() time.Time
}

// NewService initializes a new service
func NewService(store repository.Store, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{store: store, log: log, config: cfg, now: time.Now}
}

// SetNotifier attaches an optional settlement notifier.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// totalDollars returns the whole-dollar money supply backing prices: bank
// capital plus every client balance.
func totalDollars(tx repository.Tx) (float64, error) {
	bank, err := tx.BankBalance()
	if err != nil {
		return 0, err
	}
	clients, err := tx.Clients()
	if err != nil {
		return 0, err
	}
	total := bank
	for _, c := range clients {
		total += c.Balance
	}
	return math.Floor(total), nil
}

// recordPrices appends a price snapshot for every resource. Called after
// each mutation so the charts reflect post-trade prices.
func (s *Service) recordPrices(tx repository.Tx) error {
	total, err := totalDollars(tx)
	if err != nil {
		return err
	}
	resources, err := tx.Resources()
	if err != nil {
		return err
	}
	now := s.now()
	for _, r := range resources {
		e := &models.PriceHistoryEntry{
			ResourceName: r.Name,
			Price:        pricing.Price(r.BaseRate, r.Amount, total),
			Timestamp:    now,
		}
		if err := tx.AddPriceHistory(e); err != nil {
			return err
		}
	}
	return nil
}

// RecordPriceSnapshot appends a snapshot for every resource. Used by the
// optional cron job.
func (s *Service) RecordPriceSnapshot(ctx context.Context) error {
	return s.store.Update(ctx, func(tx repository.Tx) error {
		return s.recordPrices(tx)
	})
}

// ResourcePrices returns every resource with its current derived price.
func (s *Service) ResourcePrices(ctx context.Context) ([]models.ResourcePrice, error) {
	var out []models.ResourcePrice
	err := s.store.View(ctx, func(tx repository.Tx) error {
		total, err := totalDollars(tx)
		if err != nil {
			return err
		}
		resources, err := tx.Resources()
		if err != nil {
			return err
		}
		out = make([]models.ResourcePrice, 0, len(resources))
		for _, r := range resources {
			out = append(out, models.ResourcePrice{
				Name:   r.Name,
				Price:  pricing.Price(r.BaseRate, r.Amount, total),
				Amount: r.Amount,
			})
		}
		return nil
	})
	return out, err
}

// PriceHistory returns the most recent price snapshots for a resource,
// newest first. The limit is clamped to keep chart queries bounded.
func (s *Service) PriceHistory(ctx context.Context, resource string, limit int) ([]*models.PriceHistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > historyQueryCap {
		limit = historyQueryCap
	}
	var out []*models.PriceHistoryEntry
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.PriceHistory(resource, limit)
		return err
	})
	return out, err
}

// QuoteDepositEarned computes the money earned for depositing addAmount
// units at the current fixed price, net of commission.
func (s *Service) QuoteDepositEarned(ctx context.Context, resource string, addAmount int64) (float64, error) {
	if addAmount <= 0 {
		return 0, ErrInvalidAmount
	}
	var earned float64
	err := s.store.View(ctx, func(tx repository.Tx) error {
		r, err := tx.Resource(resource)
		if err != nil {
			return err
		}
		total, err := totalDollars(tx)
		if err != nil {
			return err
		}
		earned = pricing.DepositEarned(r.BaseRate, r.Amount, addAmount, total)
		return nil
	})
	return earned, err
}

// QuoteDepositAmountForMoney computes how many units must be deposited to
// net at least targetMoney after commission.
func (s *Service) QuoteDepositAmountForMoney(ctx context.Context, resource string, targetMoney float64) (int64, float64, error) {
	if targetMoney <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	var n int64
	var money float64
	err := s.store.View(ctx, func(tx repository.Tx) error {
		r, err := tx.Resource(resource)
		if err != nil {
			return err
		}
		total, err := totalDollars(tx)
		if err != nil {
			return err
		}
		n, money = pricing.DepositAmountForMoney(r.BaseRate, r.Amount, targetMoney, total)
		return nil
	})
	return n, money, err
}

// QuoteWithdrawCost computes the tiered cost of buying withdrawAmount
// units out of the vault.
func (s *Service) QuoteWithdrawCost(ctx context.Context, resource string, withdrawAmount int64) (float64, error) {
	if withdrawAmount <= 0 {
		return 0, ErrInvalidAmount
	}
	var cost float64
	err := s.store.View(ctx, func(tx repository.Tx) error {
		r, err := tx.Resource(resource)
		if err != nil {
			return err
		}
		total, err := totalDollars(tx)
		if err != nil {
			return err
		}
		cost = pricing.WithdrawCost(r.BaseRate, r.Amount, withdrawAmount, total)
		return nil
	})
	return cost, err
}

// QuoteWithdrawAmountForMoney computes the largest purchasable amount for
// availableMoney under the tiered curve.
func (s *Service) QuoteWithdrawAmountForMoney(ctx context.Context, resource string, availableMoney float64) (int64, float64, error) {
	if availableMoney <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	var n int64
	var cost float64
	err := s.store.View(ctx, func(tx repository.Tx) error {
		r, err := tx.Resource(resource)
		if err != nil {
			return err
		}
		total, err := totalDollars(tx)
		if err != nil {
			return err
		}
		n, cost = pricing.WithdrawAmountForMoney(r.BaseRate, r.Amount, availableMoney, total)
		return nil
	})
	return n, cost, err
}

// ExecuteDeposit performs a resource-deposit trade: the client hands
// addAmount units to the vault and is credited the commissioned proceeds
// from the bank's capital.
func (s *Service) ExecuteDeposit(ctx context.Context, player, resource string, addAmount int64) (float64, error) {
	if addAmount <= 0 {
		return 0, ErrInvalidAmount
	}
	var earned float64
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		bank, err := tx.BankBalance()
		if err != nil {
			return err
		}
		r, err := tx.Resource(resource)
		if err != nil {
			return err
		}
		client, err := tx.Client(player)
		if err != nil {
			return err
		}
		total, err := totalDollars(tx)
		if err != nil {
			return err
		}
		earned = pricing.DepositEarned(r.BaseRate, r.Amount, addAmount, total)
		if bank < earned {
			return fmt.Errorf("%w: bank has %.2f, needs %.2f", ErrInsufficientFunds, bank, earned)
		}
		if err := tx.SetBankBalance(bank - earned); err != nil {
			return err
		}
		r.Amount += addAmount
		if err := tx.SaveResource(r); err != nil {
			return err
		}
		client.Balance += earned
		if err := tx.SaveClient(client); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return 0, err
	}
	s.log.Infof("Deposit executed: %s sold %d %s for %.2f", player, addAmount, resource, earned)
	return earned, nil
}

// ExecuteWithdraw performs a resource-withdrawal trade: the client buys
// withdrawAmount units out of the vault at tiered prices.
func (s *Service) ExecuteWithdraw(ctx context.Context, player, resource string, withdrawAmount int64) (float64, error) {
	if withdrawAmount <= 0 {
		return 0, ErrInvalidAmount
	}
	var cost float64
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		bank, err := tx.BankBalance()
		if err != nil {
			return err
		}
		r, err := tx.Resource(resource)
		if err != nil {
			return err
		}
		client, err := tx.Client(player)
		if err != nil {
			return err
		}
		if r.Amount < withdrawAmount {
			return fmt.Errorf("%w: vault has %d, requested %d", ErrInsufficientStock, r.Amount, withdrawAmount)
		}
		total, err := totalDollars(tx)
		if err != nil {
			return err
		}
		cost = pricing.WithdrawCost(r.BaseRate, r.Amount, withdrawAmount, total)
		if client.Balance < cost {
			return fmt.Errorf("%w: client has %.2f, needs %.2f", ErrInsufficientFunds, client.Balance, cost)
		}
		if err := tx.SetBankBalance(bank + cost); err != nil {
			return err
		}
		r.Amount -= withdrawAmount
		if err := tx.SaveResource(r); err != nil {
			return err
		}
		client.Balance -= cost
		if err := tx.SaveClient(client); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return 0, err
	}
	s.log.Infof("Withdraw executed: %s bought %d %s for %.2f", player, withdrawAmount, resource, cost)
	return cost, nil
}

// AddResource registers a new resource in the vault.
func (s *Service) AddResource(ctx context.Context, name string, amount int64, baseRate float64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if baseRate <= 0 {
		return ErrInvalidRate
	}
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		if err := tx.CreateResource(&models.Resource{Name: name, Amount: amount, BaseRate: baseRate}); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return err
	}
	s.log.Infof("Resource added: %s amount=%d base_rate=%g", name, amount, baseRate)
	return nil
}

// DeleteResource removes a resource. Its price history is kept for audit.
func (s *Service) DeleteResource(ctx context.Context, name string) error {
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		if err := tx.DeleteResource(name); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return err
	}
	s.log.Infof("Resource deleted: %s", name)
	return nil
}

// UpdateResourceAmount overrides the vault stock of a resource.
func (s *Service) UpdateResourceAmount(ctx context.Context, name string, newAmount int64) error {
	if newAmount < 0 {
		return ErrInvalidAmount
	}
	return s.store.Update(ctx, func(tx repository.Tx) error {
		r, err := tx.Resource(name)
		if err != nil {
			return err
		}
		r.Amount = newAmount
		if err := tx.SaveResource(r); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
}

// UpdateBaseRate changes a resource's exchange rate. Returns the old rate.
func (s *Service) UpdateBaseRate(ctx context.Context, name string, newRate float64) (float64, error) {
	if newRate <= 0 {
		return 0, ErrInvalidRate
	}
	var old float64
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		r, err := tx.Resource(name)
		if err != nil {
			return err
		}
		old = r.BaseRate
		r.BaseRate = newRate
		if err := tx.SaveResource(r); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	return old, err
}

// BaseRates returns the exchange rate of every resource.
func (s *Service) BaseRates(ctx context.Context) (map[string]float64, error) {
	out := map[string]float64{}
	err := s.store.View(ctx, func(tx repository.Tx) error {
		resources, err := tx.Resources()
		if err != nil {
			return err
		}
		for _, r := range resources {
			out[r.Name] = r.BaseRate
		}
		return nil
	})
	return out, err
}

// ClientBalances returns every client with its balance.
func (s *Service) ClientBalances(ctx context.Context) ([]*models.Client, error) {
	var out []*models.Client
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.Clients()
		return err
	})
	return out, err
}

// RegisterClient creates a client if absent. Returns false when the name
// is already taken.
func (s *Service) RegisterClient(ctx context.Context, name string, initialBalance float64) (bool, error) {
	if initialBalance < 0 {
		return false, ErrNegativeBalance
	}
	created := false
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		if _, err := tx.Client(name); err == nil {
			return nil
		}
		if err := tx.CreateClient(&models.Client{Name: name, Balance: initialBalance}); err != nil {
			return err
		}
		created = true
		return s.recordPrices(tx)
	})
	if err != nil {
		return false, err
	}
	if created {
		s.log.Infof("Client registered: %s balance=%.2f", name, initialBalance)
	}
	return created, nil
}

// AddClient creates a client, failing on duplicates.
func (s *Service) AddClient(ctx context.Context, name string, initialBalance float64) error {
	if initialBalance < 0 {
		return ErrNegativeBalance
	}
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		if err := tx.CreateClient(&models.Client{Name: name, Balance: initialBalance}); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return err
	}
	s.log.Infof("Client added: %s balance=%.2f", name, initialBalance)
	return nil
}

// DeleteClient removes a client. Refused while the client has active
// deposits or credits.
func (s *Service) DeleteClient(ctx context.Context, name string) error {
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		if _, err := tx.Client(name); err != nil {
			return err
		}
		deposits, err := tx.DepositsByClient(name)
		if err != nil {
			return err
		}
		for _, d := range deposits {
			if d.IsActive {
				return ErrActiveInstruments
			}
		}
		credits, err := tx.CreditsByClient(name)
		if err != nil {
			return err
		}
		for _, c := range credits {
			if c.IsActive {
				return ErrActiveInstruments
			}
		}
		if err := tx.DeleteClient(name); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return err
	}
	s.log.Infof("Client deleted: %s", name)
	return nil
}

// UpdateClientBalance overrides a client balance. Returns the old balance.
func (s *Service) UpdateClientBalance(ctx context.Context, name string, newBalance float64) (float64, error) {
	if newBalance < 0 {
		return 0, ErrNegativeBalance
	}
	var old float64
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		c, err := tx.Client(name)
		if err != nil {
			return err
		}
		old = c.Balance
		c.Balance = newBalance
		if err := tx.SaveClient(c); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	return old, err
}

// BankBalance returns the bank's capital.
func (s *Service) BankBalance(ctx context.Context) (float64, error) {
	var balance float64
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		balance, err = tx.BankBalance()
		return err
	})
	return balance, err
}

// UpdateBankBalance overrides the bank's capital. Returns the old balance.
func (s *Service) UpdateBankBalance(ctx context.Context, newBalance float64) (float64, error) {
	if newBalance < 0 {
		return 0, ErrNegativeBalance
	}
	var old float64
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		var err error
		old, err = tx.BankBalance()
		if err != nil {
			return err
		}
		if err := tx.SetBankBalance(newBalance); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	return old, err
}
