package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/minebank/bank-service/internal/config"
	"github.com/minebank/bank-service/internal/middleware"
	"github.com/minebank/bank-service/internal/repository"
	"github.com/minebank/bank-service/internal/service"
)

// KeyRateProvider supplies the suggested interest rate for new
// instruments.
type KeyRateProvider interface {
	GetKeyRate(ctx context.Context) (float64, error)
}

type Handler struct {
	svc   *service.Service
	rates KeyRateProvider
}

// NewHandler creates the HTTP adapter. rates may be nil; the key-rate
// endpoint then reports the integration as unavailable.
func NewHandler(svc *service.Service, rates KeyRateProvider) *Handler {
	return &Handler{svc: svc, rates: rates}
}

// Routes builds the API router. Everything under /api/admin requires a
// valid admin token.
func (h *Handler) Routes(cfg *config.Config) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/auth/login", h.Login).Methods("POST")
	api.HandleFunc("/resources/prices", h.ResourcePrices).Methods("GET")
	api.HandleFunc("/resources/public/deposit/earned", h.CalcDepositEarned).Methods("POST")
	api.HandleFunc("/resources/public/deposit/amount-for-money", h.CalcDepositAmountForMoney).Methods("POST")
	api.HandleFunc("/resources/public/withdraw/cost", h.CalcWithdrawCost).Methods("POST")
	api.HandleFunc("/resources/public/withdraw/amount-for-money", h.CalcWithdrawAmountForMoney).Methods("POST")
	api.HandleFunc("/resources/{resource}/history", h.ResourceHistory).Methods("GET")
	api.HandleFunc("/clients/balances", h.ClientBalances).Methods("GET")
	api.HandleFunc("/clients/register", h.RegisterClient).Methods("POST")
	api.HandleFunc("/clients/{name}/deposits", h.ClientDeposits).Methods("GET")
	api.HandleFunc("/clients/{name}/credits", h.ClientCredits).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.HandleFunc("/deposit", h.AdminDeposit).Methods("POST")
	admin.HandleFunc("/withdraw", h.AdminWithdraw).Methods("POST")
	admin.HandleFunc("/update-balance", h.UpdateBalance).Methods("POST")
	admin.HandleFunc("/update-resource-amount", h.UpdateResourceAmount).Methods("POST")
	admin.HandleFunc("/add-resource", h.AddResource).Methods("POST")
	admin.HandleFunc("/delete-resource", h.DeleteResource).Methods("DELETE")
	admin.HandleFunc("/update-base-rate", h.UpdateBaseRate).Methods("POST")
	admin.HandleFunc("/base-rates", h.BaseRates).Methods("GET")
	admin.HandleFunc("/add-client", h.AddClient).Methods("POST")
	admin.HandleFunc("/delete-client", h.DeleteClient).Methods("DELETE")
	admin.HandleFunc("/bank-balance", h.BankBalance).Methods("GET")
	admin.HandleFunc("/update-bank-balance", h.UpdateBankBalance).Methods("POST")
	admin.HandleFunc("/create-deposit", h.CreateDeposit).Methods("POST")
	admin.HandleFunc("/client-deposits/{name}", h.ClientDeposits).Methods("GET")
	admin.HandleFunc("/process-expired-deposits", h.ProcessExpiredDeposits).Methods("POST")
	admin.HandleFunc("/early-return-deposit/{id}", h.EarlyReturnDeposit).Methods("POST")
	admin.HandleFunc("/create-credit", h.CreateCredit).Methods("POST")
	admin.HandleFunc("/client-credits/{name}", h.ClientCredits).Methods("GET")
	admin.HandleFunc("/process-overdue-credits", h.ProcessOverdueCredits).Methods("POST")
	admin.HandleFunc("/early-repay-credit/{id}", h.EarlyRepayCredit).Methods("POST")
	admin.HandleFunc("/key-rate", h.KeyRate).Methods("GET")

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return false
	}
	return true
}

// writeError maps service and storage errors to HTTP statuses, surfacing
// the error text in the detail field.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		httpError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrDuplicateResource),
		errors.Is(err, repository.ErrDuplicateClient),
		errors.Is(err, repository.ErrDuplicateUser),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidRate),
		errors.Is(err, service.ErrInvalidInterest),
		errors.Is(err, service.ErrInvalidDays),
		errors.Is(err, service.ErrNegativeBalance),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrAlreadySettled),
		errors.Is(err, service.ErrActiveInstruments):
		httpError(w, http.StatusBadRequest, err.Error())
	default:
		httpError(w, http.StatusInternalServerError, "internal server error")
	}
}
