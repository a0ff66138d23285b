package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestSimpleInterest(t *testing.T) {
	tests := []struct {
		amount, rate, days, want float64
	}{
		{1000, 5, 10, 1000 * 0.05 * 10 / 365},
		{1000, 0, 10, 0},
		{500, 12, 365, 60},
	}
	for _, tt := range tests {
		got := simpleInterest(tt.amount, tt.rate, tt.days)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("simpleInterest(%v,%v,%v) got=%v want=%v", tt.amount, tt.rate, tt.days, got, tt.want)
		}
	}
}

func TestElapsedDays_CappedAtTerm(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := elapsedDays(base, base.Add(5*DayDuration), 10); math.Abs(got-5) > 1e-9 {
		t.Fatalf("elapsed got=%v want=%v", got, 5.0)
	}
	if got := elapsedDays(base, base.Add(20*DayDuration), 10); got != 10 {
		t.Fatalf("elapsed got=%v want=%v", got, 10.0)
	}
	if got := elapsedDays(base, base.Add(-time.Minute), 10); got != 0 {
		t.Fatalf("elapsed got=%v want=%v", got, 0.0)
	}
}

func TestCreateDeposit_MovesPrincipalToBank(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()
	if _, err := svc.UpdateClientBalance(ctx, "steve", 2000); err != nil {
		t.Fatalf("update balance: %v", err)
	}
	bankBefore, _ := svc.BankBalance(ctx)

	d, err := svc.CreateDeposit(ctx, "steve", 1000, 10, 5)
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}
	if !d.IsActive {
		t.Fatalf("new deposit not active")
	}
	if want := d.CreatedAt.Add(10 * DayDuration); !d.DueDate.Equal(want) {
		t.Fatalf("due date got=%v want=%v", d.DueDate, want)
	}
	if got := clientBalance(t, svc, "steve"); got != 1000 {
		t.Fatalf("client balance got=%v want=%v", got, 1000.0)
	}
	bankAfter, _ := svc.BankBalance(ctx)
	if bankAfter != bankBefore+1000 {
		t.Fatalf("bank balance got=%v want=%v", bankAfter, bankBefore+1000)
	}
}

func TestCreateDeposit_Validation(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()

	if _, err := svc.CreateDeposit(ctx, "steve", 0, 10, 5); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("amount err got=%v want=%v", err, ErrInvalidAmount)
	}
	if _, err := svc.CreateDeposit(ctx, "steve", 100, 0, 5); !errors.Is(err, ErrInvalidDays) {
		t.Fatalf("days err got=%v want=%v", err, ErrInvalidDays)
	}
	if _, err := svc.CreateDeposit(ctx, "steve", 100, 366, 5); !errors.Is(err, ErrInvalidDays) {
		t.Fatalf("days err got=%v want=%v", err, ErrInvalidDays)
	}
	if _, err := svc.CreateDeposit(ctx, "steve", 100, 10, -1); !errors.Is(err, ErrInvalidInterest) {
		t.Fatalf("rate err got=%v want=%v", err, ErrInvalidInterest)
	}
	// steve only has 100.
	if _, err := svc.CreateDeposit(ctx, "steve", 1000, 10, 5); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("funds err got=%v want=%v", err, ErrInsufficientFunds)
	}
}

func TestProcessExpiredDeposits_MaturesAndIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	if _, err := svc.UpdateClientBalance(ctx, "steve", 1000); err != nil {
		t.Fatalf("update balance: %v", err)
	}
	d, err := svc.CreateDeposit(ctx, "steve", 1000, 10, 5)
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}

	// Not yet due.
	processed, err := svc.ProcessExpiredDeposits(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(processed) != 0 {
		t.Fatalf("processed before due date: %v", processed)
	}

	svc.now = func() time.Time { return base.Add(10 * DayDuration) }
	processed, err = svc.ProcessExpiredDeposits(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(processed) != 1 || processed[0] != d.ID {
		t.Fatalf("processed got=%v want=[%d]", processed, d.ID)
	}

	wantInterest := 1000 * 0.05 * 10 / 365
	if got := clientBalance(t, svc, "steve"); math.Abs(got-(1000+wantInterest)) > 1e-9 {
		t.Fatalf("client balance got=%v want=%v", got, 1000+wantInterest)
	}
	deposits, _ := svc.ClientDeposits(ctx, "steve")
	if deposits[0].IsActive {
		t.Fatalf("deposit still active after maturity")
	}
	if math.Abs(deposits[0].InterestEarned-wantInterest) > 1e-9 {
		t.Fatalf("interest got=%v want=%v", deposits[0].InterestEarned, wantInterest)
	}

	// Second run settles nothing.
	processed, err = svc.ProcessExpiredDeposits(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(processed) != 0 {
		t.Fatalf("second run processed %v", processed)
	}
}

func TestEarlyReturnDeposit_ProRatedInterest(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	if _, err := svc.UpdateClientBalance(ctx, "steve", 1000); err != nil {
		t.Fatalf("update balance: %v", err)
	}
	d, err := svc.CreateDeposit(ctx, "steve", 1000, 10, 5)
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}

	svc.now = func() time.Time { return base.Add(5 * DayDuration) }
	settled, err := svc.EarlyReturnDeposit(ctx, d.ID)
	if err != nil {
		t.Fatalf("early return: %v", err)
	}
	wantInterest := 1000 * 0.05 * 5 / 365
	if math.Abs(settled.InterestEarned-wantInterest) > 1e-9 {
		t.Fatalf("interest got=%v want=%v", settled.InterestEarned, wantInterest)
	}
	full := simpleInterest(1000, 5, 10)
	if settled.InterestEarned > full {
		t.Fatalf("early interest %v exceeds full-term %v", settled.InterestEarned, full)
	}

	if _, err := svc.EarlyReturnDeposit(ctx, d.ID); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("second settle err got=%v want=%v", err, ErrAlreadySettled)
	}
}

func TestEarlyReturnDeposit_AtTermEqualsFullInterest(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	if _, err := svc.UpdateClientBalance(ctx, "steve", 1000); err != nil {
		t.Fatalf("update balance: %v", err)
	}
	d, err := svc.CreateDeposit(ctx, "steve", 1000, 10, 5)
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}
	svc.now = func() time.Time { return base.Add(10 * DayDuration) }
	settled, err := svc.EarlyReturnDeposit(ctx, d.ID)
	if err != nil {
		t.Fatalf("early return: %v", err)
	}
	if math.Abs(settled.InterestEarned-simpleInterest(1000, 5, 10)) > 1e-9 {
		t.Fatalf("interest got=%v want full-term", settled.InterestEarned)
	}
}

func TestCreateCredit_MovesPrincipalToClient(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()
	bankBefore, _ := svc.BankBalance(ctx)

	c, err := svc.CreateCredit(ctx, "steve", 500, 30, 12)
	if err != nil {
		t.Fatalf("create credit: %v", err)
	}
	if !c.IsActive || c.IsOverdue {
		t.Fatalf("new credit state active=%v overdue=%v", c.IsActive, c.IsOverdue)
	}
	if got := clientBalance(t, svc, "steve"); got != 600 {
		t.Fatalf("client balance got=%v want=%v", got, 600.0)
	}
	bankAfter, _ := svc.BankBalance(ctx)
	if bankAfter != bankBefore-500 {
		t.Fatalf("bank balance got=%v want=%v", bankAfter, bankBefore-500)
	}
}

func TestCreateCredit_BankMustHaveFunds(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()
	if _, err := svc.UpdateBankBalance(ctx, 100); err != nil {
		t.Fatalf("update bank: %v", err)
	}
	if _, err := svc.CreateCredit(ctx, "steve", 500, 30, 12); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err got=%v want=%v", err, ErrInsufficientFunds)
	}
}

func TestProcessOverdueCredits_FlagsThenSettles(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	c, err := svc.CreateCredit(ctx, "steve", 500, 10, 10)
	if err != nil {
		t.Fatalf("create credit: %v", err)
	}
	// Drain the client so repayment fails at maturity.
	if _, err := svc.UpdateClientBalance(ctx, "steve", 5); err != nil {
		t.Fatalf("update balance: %v", err)
	}

	svc.now = func() time.Time { return base.Add(10 * DayDuration) }
	settled, flagged, err := svc.ProcessOverdueCredits(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(settled) != 0 || len(flagged) != 1 || flagged[0] != c.ID {
		t.Fatalf("settled=%v flagged=%v want flagged=[%d]", settled, flagged, c.ID)
	}
	credits, _ := svc.ClientCredits(ctx, "steve")
	if !credits[0].IsActive || !credits[0].IsOverdue {
		t.Fatalf("credit state active=%v overdue=%v want active overdue", credits[0].IsActive, credits[0].IsOverdue)
	}

	// A second run does not re-flag.
	settled, flagged, err = svc.ProcessOverdueCredits(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(settled) != 0 || len(flagged) != 0 {
		t.Fatalf("second run settled=%v flagged=%v", settled, flagged)
	}

	// Once funded, the credit settles.
	if _, err := svc.UpdateClientBalance(ctx, "steve", 2000); err != nil {
		t.Fatalf("update balance: %v", err)
	}
	settled, flagged, err = svc.ProcessOverdueCredits(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(settled) != 1 || settled[0] != c.ID || len(flagged) != 0 {
		t.Fatalf("settled=%v flagged=%v want settled=[%d]", settled, flagged, c.ID)
	}
	wantInterest := 500 * 0.10 * 10 / 365
	credits, _ = svc.ClientCredits(ctx, "steve")
	if credits[0].IsActive || credits[0].IsOverdue {
		t.Fatalf("credit not cleanly settled: active=%v overdue=%v", credits[0].IsActive, credits[0].IsOverdue)
	}
	if math.Abs(credits[0].InterestOwed-wantInterest) > 1e-9 {
		t.Fatalf("interest got=%v want=%v", credits[0].InterestOwed, wantInterest)
	}
	if got := clientBalance(t, svc, "steve"); math.Abs(got-(2000-500-wantInterest)) > 1e-9 {
		t.Fatalf("client balance got=%v want=%v", got, 2000-500-wantInterest)
	}
}

func TestEarlyRepayCredit(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	c, err := svc.CreateCredit(ctx, "steve", 500, 10, 10)
	if err != nil {
		t.Fatalf("create credit: %v", err)
	}
	svc.now = func() time.Time { return base.Add(5 * DayDuration) }
	settled, err := svc.EarlyRepayCredit(ctx, c.ID)
	if err != nil {
		t.Fatalf("early repay: %v", err)
	}
	wantInterest := 500 * 0.10 * 5 / 365
	if math.Abs(settled.InterestOwed-wantInterest) > 1e-9 {
		t.Fatalf("interest got=%v want=%v", settled.InterestOwed, wantInterest)
	}
	if _, err := svc.EarlyRepayCredit(ctx, c.ID); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("second repay err got=%v want=%v", err, ErrAlreadySettled)
	}
}

func TestDeleteClient_RefusedWithActiveInstruments(t *testing.T) {
	svc := newTestService(t)
	seedMarket(t, svc)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	c, err := svc.CreateCredit(ctx, "steve", 100, 5, 10)
	if err != nil {
		t.Fatalf("create credit: %v", err)
	}
	if err := svc.DeleteClient(ctx, "steve"); !errors.Is(err, ErrActiveInstruments) {
		t.Fatalf("err got=%v want=%v", err, ErrActiveInstruments)
	}

	if _, err := svc.EarlyRepayCredit(ctx, c.ID); err != nil {
		t.Fatalf("early repay: %v", err)
	}
	if err := svc.DeleteClient(ctx, "steve"); err != nil {
		t.Fatalf("delete after settle: %v", err)
	}
}
