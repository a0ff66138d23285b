package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// AdminDeposit executes a resource-deposit trade for a player.
func (h *Handler) AdminDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player   string `json:"player"`
		Resource string `json:"resource"`
		Amount   int64  `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	earned, err := h.svc.ExecuteDeposit(r.Context(), req.Player, req.Resource, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "earned": earned, "commission": "5%"})
}

// AdminWithdraw executes a resource-withdrawal trade for a player.
func (h *Handler) AdminWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player   string `json:"player"`
		Resource string `json:"resource"`
		Amount   int64  `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	cost, err := h.svc.ExecuteWithdraw(r.Context(), req.Player, req.Resource, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "cost": cost, "commission": "0%"})
}

func (h *Handler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player     string  `json:"player"`
		NewBalance float64 `json:"new_balance"`
	}
	if !decode(w, r, &req) {
		return
	}
	old, err := h.svc.UpdateClientBalance(r.Context(), req.Player, req.NewBalance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok", "player": req.Player, "old_balance": old, "new_balance": req.NewBalance,
	})
}

func (h *Handler) UpdateResourceAmount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource  string `json:"resource"`
		NewAmount int64  `json:"new_amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.UpdateResourceAmount(r.Context(), req.Resource, req.NewAmount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok", "resource": req.Resource, "new_amount": req.NewAmount,
	})
}

func (h *Handler) AddResource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string  `json:"name"`
		Amount   int64   `json:"amount"`
		BaseRate float64 `json:"base_rate"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.AddResource(r.Context(), req.Name, req.Amount, req.BaseRate); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok", "resource": req.Name, "amount": req.Amount, "base_rate": req.BaseRate,
	})
}

func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource string `json:"resource"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.DeleteResource(r.Context(), req.Resource); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "deleted_resource": req.Resource})
}

func (h *Handler) UpdateBaseRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource string  `json:"resource"`
		NewRate  float64 `json:"new_rate"`
	}
	if !decode(w, r, &req) {
		return
	}
	old, err := h.svc.UpdateBaseRate(r.Context(), req.Resource, req.NewRate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok", "resource": req.Resource, "old_rate": old, "new_rate": req.NewRate,
	})
}

func (h *Handler) BaseRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.svc.BaseRates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"base_rates": rates})
}

func (h *Handler) AddClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string  `json:"name"`
		InitialBalance float64 `json:"initial_balance"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.AddClient(r.Context(), req.Name, req.InitialBalance); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok", "name": req.Name, "balance": req.InitialBalance,
	})
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.DeleteClient(r.Context(), req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "deleted_client": req.Name})
}

func (h *Handler) BankBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.BankBalance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (h *Handler) UpdateBankBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewBalance float64 `json:"new_balance"`
	}
	if !decode(w, r, &req) {
		return
	}
	old, err := h.svc.UpdateBankBalance(r.Context(), req.NewBalance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok", "old_balance": old, "new_balance": req.NewBalance,
	})
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientName   string  `json:"client_name"`
		Amount       float64 `json:"amount"`
		Days         int     `json:"days"`
		InterestRate float64 `json:"interest_rate"`
	}
	if !decode(w, r, &req) {
		return
	}
	d, err := h.svc.CreateDeposit(r.Context(), req.ClientName, req.Amount, req.Days, req.InterestRate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "deposit": d})
}

func (h *Handler) ProcessExpiredDeposits(w http.ResponseWriter, r *http.Request) {
	processed, err := h.svc.ProcessExpiredDeposits(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if processed == nil {
		processed = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "processed": processed})
}

func (h *Handler) EarlyReturnDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid deposit id")
		return
	}
	d, err := h.svc.EarlyReturnDeposit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "deposit": d})
}

func (h *Handler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientName   string  `json:"client_name"`
		Amount       float64 `json:"amount"`
		Days         int     `json:"days"`
		InterestRate float64 `json:"interest_rate"`
	}
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCredit(r.Context(), req.ClientName, req.Amount, req.Days, req.InterestRate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "credit": c})
}

func (h *Handler) ProcessOverdueCredits(w http.ResponseWriter, r *http.Request) {
	settled, flagged, err := h.svc.ProcessOverdueCredits(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if settled == nil {
		settled = []int64{}
	}
	if flagged == nil {
		flagged = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok", "processed": settled, "overdue": flagged,
	})
}

func (h *Handler) EarlyRepayCredit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid credit id")
		return
	}
	c, err := h.svc.EarlyRepayCredit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "credit": c})
}

// KeyRate returns the central-bank key rate plus margin, used as the
// suggested rate when opening deposits and credits.
func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	if h.rates == nil {
		httpError(w, http.StatusServiceUnavailable, "key rate integration is not configured")
		return
	}
	rate, err := h.rates.GetKeyRate(r.Context())
	if err != nil {
		httpError(w, http.StatusBadGateway, "failed to get key rate: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key_rate": rate})
}
