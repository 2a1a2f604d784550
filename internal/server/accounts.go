package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	httpmiddleware "github.com/wolfeidau/tenantry/internal/http"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
)

const maxAccountNameLength = 200

// AccountHandlers serves the tenant scoped account endpoints. Handlers never
// see a tenant id: the store resolves it from the request context.
type AccountHandlers struct {
	accounts store.AccountStore
}

// NewAccountHandlers creates account handlers backed by accounts.
func NewAccountHandlers(accounts store.AccountStore) *AccountHandlers {
	return &AccountHandlers{accounts: accounts}
}

type createAccountRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type listAccountsResponse struct {
	Accounts []*models.Account `json:"accounts"`
}

// List returns the accounts of the current tenant.
func (h *AccountHandlers) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	if accounts == nil {
		accounts = []*models.Account{}
	}

	httpmiddleware.WriteJSON(w, r, http.StatusOK, listAccountsResponse{Accounts: accounts})
}

// Get returns a single account of the current tenant.
func (h *AccountHandlers) Get(w http.ResponseWriter, r *http.Request) {
	accountID, err := httpmiddleware.ParseUUIDPathValue(r, "accountID")
	if err != nil {
		// ids that can't exist are reported like ids that don't
		httpmiddleware.WriteError(w, r, store.ErrAccountNotFound)
		return
	}

	account, err := h.accounts.Get(r.Context(), accountID)
	if err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	httpmiddleware.WriteJSON(w, r, http.StatusOK, account)
}

// Create adds an account to the current tenant.
func (h *AccountHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > maxAccountNameLength {
		httpmiddleware.WriteError(w, r, fmt.Errorf("%w: name must be between 1 and %d characters", httpmiddleware.ErrBadRequest, maxAccountNameLength))
		return
	}

	account := &models.Account{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.accounts.Create(r.Context(), account); err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("account_id", account.AccountID.String()).
		Msg("Account created")

	w.Header().Set("Location", r.URL.Path+"/"+account.AccountID.String())
	httpmiddleware.WriteJSON(w, r, http.StatusCreated, account)
}

// Delete removes an account of the current tenant.
func (h *AccountHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, err := httpmiddleware.ParseUUIDPathValue(r, "accountID")
	if err != nil {
		httpmiddleware.WriteError(w, r, store.ErrAccountNotFound)
		return
	}

	if err := h.accounts.Delete(r.Context(), accountID); err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
