package service

import (
	"context"
	"fmt"
	"time"

	"github.com/minebank/bank-service/internal/models"
	"github.com/minebank/bank-service/internal/repository"
)

// DayDuration is the wall-clock length of one in-game day. It only affects
// how a term maps to a due date; interest always counts calendar days.
const DayDuration = 17 * time.Minute

const daysPerYear = 365

// simpleInterest computes simple annual-rate interest over days.
func simpleInterest(amount, ratePercent, days float64) float64 {
	return amount * (ratePercent / 100) * (days / daysPerYear)
}

// elapsedDays converts the wall time since creation into in-game days,
// capped at the instrument's term.
func elapsedDays(createdAt, now time.Time, term int) float64 {
	days := now.Sub(createdAt).Minutes() / DayDuration.Minutes()
	if days < 0 {
		return 0
	}
	if days > float64(term) {
		return float64(term)
	}
	return days
}

func validateTerm(amount float64, days int, rate float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if days < 1 || days > 365 {
		return ErrInvalidDays
	}
	if rate < 0 {
		return ErrInvalidInterest
	}
	return nil
}

// CreateDeposit opens a term deposit: the principal moves from the client
// to the bank until maturity.
func (s *Service) CreateDeposit(ctx context.Context, clientName string, amount float64, days int, rate float64) (*models.Deposit, error) {
	if err := validateTerm(amount, days, rate); err != nil {
		return nil, err
	}
	d := &models.Deposit{}
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		bank, err := tx.BankBalance()
		if err != nil {
			return err
		}
		client, err := tx.Client(clientName)
		if err != nil {
			return err
		}
		if client.Balance < amount {
			return fmt.Errorf("%w: client has %.2f, needs %.2f", ErrInsufficientFunds, client.Balance, amount)
		}
		client.Balance -= amount
		if err := tx.SaveClient(client); err != nil {
			return err
		}
		if err := tx.SetBankBalance(bank + amount); err != nil {
			return err
		}
		now := s.now()
		*d = models.Deposit{
			ClientName:   clientName,
			Amount:       amount,
			InterestRate: rate,
			Days:         days,
			CreatedAt:    now,
			DueDate:      now.Add(time.Duration(days) * DayDuration),
			IsActive:     true,
		}
		if err := tx.CreateDeposit(d); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Deposit created: id=%d client=%s amount=%.2f rate=%g days=%d", d.ID, clientName, amount, rate, days)
	return d, nil
}

// ClientDeposits lists all deposits of a client, active and settled.
func (s *Service) ClientDeposits(ctx context.Context, clientName string) ([]*models.Deposit, error) {
	var out []*models.Deposit
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.DepositsByClient(clientName)
		return err
	})
	return out, err
}

// ProcessExpiredDeposits settles every active deposit past its due date at
// the full-term interest and returns the settled ids. Running it again
// immediately settles nothing.
func (s *Service) ProcessExpiredDeposits(ctx context.Context) ([]int64, error) {
	var processed []int64
	var paidOut float64
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		processed = nil
		paidOut = 0
		deposits, err := tx.ActiveDeposits()
		if err != nil {
			return err
		}
		now := s.now()
		for _, d := range deposits {
			if now.Before(d.DueDate) {
				continue
			}
			interest := simpleInterest(d.Amount, d.InterestRate, float64(d.Days))
			payout := d.Amount + interest
			bank, err := tx.BankBalance()
			if err != nil {
				return err
			}
			if err := tx.SetBankBalance(bank - payout); err != nil {
				return err
			}
			client, err := tx.Client(d.ClientName)
			if err != nil {
				return err
			}
			client.Balance += payout
			if err := tx.SaveClient(client); err != nil {
				return err
			}
			d.IsActive = false
			d.InterestEarned = interest
			if err := tx.SaveDeposit(d); err != nil {
				return err
			}
			s.log.Infof("Deposit matured: id=%d client=%s principal=%.2f interest=%.2f", d.ID, d.ClientName, d.Amount, interest)
			processed = append(processed, d.ID)
			paidOut += payout
		}
		if len(processed) == 0 {
			return nil
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return nil, err
	}
	if len(processed) > 0 && s.notifier != nil {
		s.notifier.MaturityReport(len(processed), 0, paidOut)
	}
	return processed, nil
}

// EarlyReturnDeposit settles an active deposit before its due date with
// interest pro-rated to the elapsed term.
func (s *Service) EarlyReturnDeposit(ctx context.Context, id int64) (*models.Deposit, error) {
	var d *models.Deposit
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		var err error
		d, err = tx.Deposit(id)
		if err != nil {
			return err
		}
		if !d.IsActive {
			return ErrAlreadySettled
		}
		interest := simpleInterest(d.Amount, d.InterestRate, elapsedDays(d.CreatedAt, s.now(), d.Days))
		payout := d.Amount + interest
		bank, err := tx.BankBalance()
		if err != nil {
			return err
		}
		if err := tx.SetBankBalance(bank - payout); err != nil {
			return err
		}
		client, err := tx.Client(d.ClientName)
		if err != nil {
			return err
		}
		client.Balance += payout
		if err := tx.SaveClient(client); err != nil {
			return err
		}
		d.IsActive = false
		d.InterestEarned = interest
		if err := tx.SaveDeposit(d); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Deposit returned early: id=%d client=%s interest=%.2f", d.ID, d.ClientName, d.InterestEarned)
	return d, nil
}

// CreateCredit opens a credit: the principal moves from the bank to the
// client, repayable with interest at maturity.
func (s *Service) CreateCredit(ctx context.Context, clientName string, amount float64, days int, rate float64) (*models.Credit, error) {
	if err := validateTerm(amount, days, rate); err != nil {
		return nil, err
	}
	c := &models.Credit{}
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		bank, err := tx.BankBalance()
		if err != nil {
			return err
		}
		client, err := tx.Client(clientName)
		if err != nil {
			return err
		}
		if bank < amount {
			return fmt.Errorf("%w: bank has %.2f, needs %.2f", ErrInsufficientFunds, bank, amount)
		}
		if err := tx.SetBankBalance(bank - amount); err != nil {
			return err
		}
		client.Balance += amount
		if err := tx.SaveClient(client); err != nil {
			return err
		}
		now := s.now()
		*c = models.Credit{
			ClientName:   clientName,
			Amount:       amount,
			InterestRate: rate,
			Days:         days,
			CreatedAt:    now,
			DueDate:      now.Add(time.Duration(days) * DayDuration),
			IsActive:     true,
		}
		if err := tx.CreateCredit(c); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Credit created: id=%d client=%s amount=%.2f rate=%g days=%d", c.ID, clientName, amount, rate, days)
	return c, nil
}

// ClientCredits lists all credits of a client, active and settled.
func (s *Service) ClientCredits(ctx context.Context, clientName string) ([]*models.Credit, error) {
	var out []*models.Credit
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.CreditsByClient(clientName)
		return err
	})
	return out, err
}

// ProcessOverdueCredits collects every active credit past its due date.
// Clients with sufficient funds are auto-debited principal plus full-term
// interest; the rest are flagged overdue and stay active. Returns the
// settled and the newly flagged ids.
func (s *Service) ProcessOverdueCredits(ctx context.Context) (settled, flagged []int64, err error) {
	type overdueNote struct {
		client string
		due    float64
	}
	var notes []overdueNote
	var collected float64
	err = s.store.Update(ctx, func(tx repository.Tx) error {
		settled, flagged, notes = nil, nil, nil
		collected = 0
		credits, err := tx.ActiveCredits()
		if err != nil {
			return err
		}
		now := s.now()
		for _, c := range credits {
			if now.Before(c.DueDate) {
				continue
			}
			interest := simpleInterest(c.Amount, c.InterestRate, float64(c.Days))
			due := c.Amount + interest
			client, err := tx.Client(c.ClientName)
			if err != nil {
				return err
			}
			if client.Balance < due {
				if !c.IsOverdue {
					c.IsOverdue = true
					if err := tx.SaveCredit(c); err != nil {
						return err
					}
					flagged = append(flagged, c.ID)
					notes = append(notes, overdueNote{client: c.ClientName, due: due})
				}
				continue
			}
			client.Balance -= due
			if err := tx.SaveClient(client); err != nil {
				return err
			}
			bank, err := tx.BankBalance()
			if err != nil {
				return err
			}
			if err := tx.SetBankBalance(bank + due); err != nil {
				return err
			}
			c.IsActive = false
			c.IsOverdue = false
			c.InterestOwed = interest
			if err := tx.SaveCredit(c); err != nil {
				return err
			}
			s.log.Infof("Credit repaid: id=%d client=%s principal=%.2f interest=%.2f", c.ID, c.ClientName, c.Amount, interest)
			settled = append(settled, c.ID)
			collected += due
		}
		if len(settled) == 0 && len(flagged) == 0 {
			return nil
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return nil, nil, err
	}
	for _, id := range flagged {
		s.log.Warnf("Credit overdue: id=%d", id)
	}
	if s.notifier != nil {
		if len(settled) > 0 {
			s.notifier.MaturityReport(0, len(settled), collected)
		}
		for _, n := range notes {
			s.notifier.OverdueCredit(n.client, n.due)
		}
	}
	return settled, flagged, nil
}

// EarlyRepayCredit settles an active credit before its due date with
// interest pro-rated to the elapsed term. The client must have the funds.
func (s *Service) EarlyRepayCredit(ctx context.Context, id int64) (*models.Credit, error) {
	var c *models.Credit
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		var err error
		c, err = tx.Credit(id)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return ErrAlreadySettled
		}
		interest := simpleInterest(c.Amount, c.InterestRate, elapsedDays(c.CreatedAt, s.now(), c.Days))
		due := c.Amount + interest
		client, err := tx.Client(c.ClientName)
		if err != nil {
			return err
		}
		if client.Balance < due {
			return fmt.Errorf("%w: client has %.2f, needs %.2f", ErrInsufficientFunds, client.Balance, due)
		}
		client.Balance -= due
		if err := tx.SaveClient(client); err != nil {
			return err
		}
		bank, err := tx.BankBalance()
		if err != nil {
			return err
		}
		if err := tx.SetBankBalance(bank + due); err != nil {
			return err
		}
		c.IsActive = false
		c.IsOverdue = false
		c.InterestOwed = interest
		if err := tx.SaveCredit(c); err != nil {
			return err
		}
		return s.recordPrices(tx)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Credit repaid early: id=%d client=%s interest=%.2f", c.ID, c.ClientName, c.InterestOwed)
	return c, nil
}
