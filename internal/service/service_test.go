package service

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/minebank/bank-service/internal/config"
	"github.com/minebank/bank-service/internal/repository"
	"github.com/sirupsen/logrus"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:     "test-secret",
		AdminLogin:    "admin",
		AdminPassword: "admin",
	}
	return NewService(repository.NewMemoryStore(), log, cfg)
}

func seedMarket(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	if err := svc.AddResource(ctx, "diamond", 1000, 1); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	if err := svc.AddClient(ctx, "steve", 100); err != nil {
		t.Fatalf("add client: %v", err)
	}
}

func clientBalance(t *testing.T, svc *Service, name string) float64 {
	t.Helper()
	clients, err := svc.ClientBalances(context.Background())
	if err != nil {
		t.Fatalf("client balances: %v", err)
	}
	for _, c := range clients {
		if c.Name == name {
			return c.Balance
		}
	}
	t.Fatalf("client %s not found", name)
	return 0
}

func TestExecuteDeposit_ZeroSumTransfer(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()

	quote, err := svc.QuoteDepositEarned(ctx, "diamond", 100)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	bankBefore, _ := svc.BankBalance(ctx)

	earned, err := svc.ExecuteDeposit(ctx, "steve", "diamond", 100)
	if err != nil {
		t.Fatalf("execute deposit: %v", err)
	}
	if math.Abs(earned-quote) > 1e-9 {
		t.Fatalf("earned got=%v want quoted %v", earned, quote)
	}

	bankAfter, _ := svc.BankBalance(ctx)
	if math.Abs((bankBefore-bankAfter)-earned) > 1e-9 {
		t.Fatalf("bank delta got=%v want=%v", bankBefore-bankAfter, earned)
	}
	if got := clientBalance(t, svc, "steve"); math.Abs(got-(100+earned)) > 1e-9 {
		t.Fatalf("client balance got=%v want=%v", got, 100+earned)
	}

	prices, err := svc.ResourcePrices(ctx)
	if err != nil {
		t.Fatalf("prices: %v", err)
	}
	if prices[0].Amount != 1100 {
		t.Fatalf("stock got=%d want=%d", prices[0].Amount, 1100)
	}
}

func TestExecuteDeposit_RecordsHistory(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()

	before, err := svc.PriceHistory(ctx, "diamond", 100)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if _, err := svc.ExecuteDeposit(ctx, "steve", "diamond", 10); err != nil {
		t.Fatalf("execute deposit: %v", err)
	}
	after, err := svc.PriceHistory(ctx, "diamond", 100)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("history entries got=%d want=%d", len(after), len(before)+1)
	}
	// Newest first.
	if after[0].ID <= after[len(after)-1].ID && len(after) > 1 {
		t.Fatalf("history not newest-first")
	}
}

func TestExecuteWithdraw_InsufficientStockLeavesStateUnchanged(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()

	bankBefore, _ := svc.BankBalance(ctx)
	_, err := svc.ExecuteWithdraw(ctx, "steve", "diamond", 5000)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err got=%v want=%v", err, ErrInsufficientStock)
	}
	bankAfter, _ := svc.BankBalance(ctx)
	if bankBefore != bankAfter {
		t.Fatalf("bank changed on failed withdraw: %v != %v", bankBefore, bankAfter)
	}
	if got := clientBalance(t, svc, "steve"); got != 100 {
		t.Fatalf("client balance got=%v want=%v", got, 100.0)
	}
	prices, _ := svc.ResourcePrices(ctx)
	if prices[0].Amount != 1000 {
		t.Fatalf("stock got=%d want=%d", prices[0].Amount, 1000)
	}
}

func TestExecuteWithdraw_InsufficientFunds(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()

	// steve has 100; a large purchase costs far more.
	_, err := svc.ExecuteWithdraw(ctx, "steve", "diamond", 900)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err got=%v want=%v", err, ErrInsufficientFunds)
	}
}

func TestExecuteWithdraw_ZeroSumTransfer(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()

	if _, err := svc.UpdateClientBalance(ctx, "steve", 10000); err != nil {
		t.Fatalf("update balance: %v", err)
	}
	quote, err := svc.QuoteWithdrawCost(ctx, "diamond", 50)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	bankBefore, _ := svc.BankBalance(ctx)

	cost, err := svc.ExecuteWithdraw(ctx, "steve", "diamond", 50)
	if err != nil {
		t.Fatalf("execute withdraw: %v", err)
	}
	if math.Abs(cost-quote) > 1e-9 {
		t.Fatalf("cost got=%v want quoted %v", cost, quote)
	}
	bankAfter, _ := svc.BankBalance(ctx)
	if math.Abs((bankAfter-bankBefore)-cost) > 1e-9 {
		t.Fatalf("bank delta got=%v want=%v", bankAfter-bankBefore, cost)
	}
	if got := clientBalance(t, svc, "steve"); math.Abs(got-(10000-cost)) > 1e-9 {
		t.Fatalf("client balance got=%v want=%v", got, 10000-cost)
	}
}

func TestQuotes_RejectNonPositiveAmounts(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()

	if _, err := svc.QuoteDepositEarned(ctx, "diamond", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("deposit earned err got=%v want=%v", err, ErrInvalidAmount)
	}
	if _, err := svc.QuoteWithdrawCost(ctx, "diamond", -1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("withdraw cost err got=%v want=%v", err, ErrInvalidAmount)
	}
	if _, _, err := svc.QuoteDepositAmountForMoney(ctx, "diamond", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("amount-for-money err got=%v want=%v", err, ErrInvalidAmount)
	}
}

func TestQuotes_UnknownResource(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)

	_, err := svc.QuoteDepositEarned(context.Background(), "emerald", 10)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err got=%v want=%v", err, repository.ErrNotFound)
	}
}

func TestAddResource_Validation(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()

	if err := svc.AddResource(ctx, "diamond", 10, 1); !errors.Is(err, repository.ErrDuplicateResource) {
		t.Fatalf("duplicate err got=%v want=%v", err, repository.ErrDuplicateResource)
	}
	if err := svc.AddResource(ctx, "emerald", 10, 0); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("rate err got=%v want=%v", err, ErrInvalidRate)
	}
	if err := svc.AddResource(ctx, "emerald", -5, 1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("amount err got=%v want=%v", err, ErrInvalidAmount)
	}
}

func TestUpdateBalances_RejectNegative(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()

	if _, err := svc.UpdateClientBalance(ctx, "steve", -1); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("client err got=%v want=%v", err, ErrNegativeBalance)
	}
	if _, err := svc.UpdateBankBalance(ctx, -1); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("bank err got=%v want=%v", err, ErrNegativeBalance)
	}
}

func TestDeleteResource_KeepsHistory(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()

	if err := svc.DeleteResource(ctx, "diamond"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteResource(ctx, "diamond"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second delete err got=%v want=%v", err, repository.ErrNotFound)
	}
	history, err := svc.PriceHistory(ctx, "diamond", 100)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) == 0 {
		t.Fatalf("history lost after resource deletion")
	}
}

func TestRegisterClient_Idempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.RegisterClient(ctx, "alex", 50)
	if err != nil || !created {
		t.Fatalf("first register created=%v err=%v", created, err)
	}
	created, err = svc.RegisterClient(ctx, "alex", 50)
	if err != nil || created {
		t.Fatalf("second register created=%v err=%v", created, err)
	}
	if got := clientBalance(t, svc, "alex"); got != 50 {
		t.Fatalf("balance got=%v want=%v", got, 50.0)
	}
}
