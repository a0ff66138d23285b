package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/minebank/bank-service/internal/models"
	"github.com/minebank/bank-service/internal/service"
)

// Login handles user authentication. Wrong credentials keep the original
// contract: HTTP 200 with a status string and a null token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	token, role, err := h.svc.Login(r.Context(), req.Login, req.Password)
	if err == service.ErrInvalidCredentials {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "wrong login or password", "token": nil, "user_role": nil,
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok", "token": token, "user_role": role,
	})
}

// ResourcePrices returns every resource with its derived price.
func (h *Handler) ResourcePrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.svc.ResourcePrices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": prices})
}

// ResourceHistory returns recent price snapshots, newest first.
func (h *Handler) ResourceHistory(w http.ResponseWriter, r *http.Request) {
	resource := mux.Vars(r)["resource"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := h.svc.PriceHistory(r.Context(), resource, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []*models.PriceHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource_name": resource,
		"history":       history,
	})
}

func (h *Handler) CalcDepositEarned(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource  string `json:"resource"`
		AddAmount int64  `json:"add_amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	earned, err := h.svc.QuoteDepositEarned(r.Context(), req.Resource, req.AddAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"earned": earned, "commission": "5%"})
}

func (h *Handler) CalcDepositAmountForMoney(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource    string  `json:"resource"`
		TargetMoney float64 `json:"target_money"`
	}
	if !decode(w, r, &req) {
		return
	}
	n, money, err := h.svc.QuoteDepositAmountForMoney(r.Context(), req.Resource, req.TargetMoney)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"needed_amount": n, "money": money})
}

func (h *Handler) CalcWithdrawCost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource       string `json:"resource"`
		WithdrawAmount int64  `json:"withdraw_amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	cost, err := h.svc.QuoteWithdrawCost(r.Context(), req.Resource, req.WithdrawAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cost": cost, "commission": "0%"})
}

func (h *Handler) CalcWithdrawAmountForMoney(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource       string  `json:"resource"`
		AvailableMoney float64 `json:"available_money"`
	}
	if !decode(w, r, &req) {
		return
	}
	n, cost, err := h.svc.QuoteWithdrawAmountForMoney(r.Context(), req.Resource, req.AvailableMoney)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"max_amount": n, "cost": cost})
}

// ClientBalances returns every client with its balance.
func (h *Handler) ClientBalances(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.ClientBalances(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if clients == nil {
		clients = []*models.Client{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

// RegisterClient creates an account for a new player with a starter balance.
func (h *Handler) RegisterClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string   `json:"name"`
		InitialAmount *float64 `json:"initial_amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	initial := 50.0
	if req.InitialAmount != nil {
		initial = *req.InitialAmount
	}
	created, err := h.svc.RegisterClient(r.Context(), req.Name, initial)
	if err != nil {
		writeError(w, err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, map[string]any{"status": "already exists"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "created", "name": req.Name, "balance": initial,
	})
}

// ClientDeposits lists a client's deposits. Served both publicly and under
// the admin prefix.
func (h *Handler) ClientDeposits(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	deposits, err := h.svc.ClientDeposits(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	if deposits == nil {
		deposits = []*models.Deposit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposits": deposits})
}

// ClientCredits lists a client's credits.
func (h *Handler) ClientCredits(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	credits, err := h.svc.ClientCredits(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	if credits == nil {
		credits = []*models.Credit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"credits": credits})
}
