package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/remote"
)

// NewAPIServer serves fake over the same REST routes remote.Client calls.
// When token is non-empty, requests without the matching bearer token get 401.
// The server is closed at test cleanup.
func NewAPIServer(t testing.TB, fake *FakeRemote, token string) *httptest.Server {
	t.Helper()
	h := &apiHandler{fake: fake}

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if token != "" && req.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, &remote.StatusError{StatusCode: http.StatusUnauthorized})
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/accounts", h.listAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id:[0-9]+}", h.updateAccount).Methods(http.MethodPut)
	r.HandleFunc("/categories", h.categories).Methods(http.MethodGet)
	r.HandleFunc("/categories/type/{income}", h.categoriesByType).Methods(http.MethodGet)
	r.HandleFunc("/transactions/account/{id:[0-9]+}/period", h.period).Methods(http.MethodGet)
	r.HandleFunc("/transactions", h.create).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id:[0-9]+}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/transactions/{id:[0-9]+}", h.remove).Methods(http.MethodDelete)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type apiHandler struct {
	fake *FakeRemote
}

// callContext carries the correlation headers into the fake.
func callContext(req *http.Request) context.Context {
	ctx := req.Context()
	if id := req.Header.Get("X-Request-ID"); id != "" {
		ctx = model.WithRequestID(ctx, id)
	}
	if key := req.Header.Get("Idempotency-Key"); key != "" {
		ctx = model.WithIdempotencyKey(ctx, key)
	}
	return ctx
}

func pathID(req *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(req)["id"], 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status a real server would use for err.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	var se *remote.StatusError
	if errors.As(err, &se) {
		status = se.StatusCode
	}
	writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}

func (h *apiHandler) listAccounts(w http.ResponseWriter, req *http.Request) {
	account, err := h.fake.FetchPrimary(callContext(req))
	if err != nil {
		var se *remote.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			writeJSON(w, http.StatusOK, []model.BankAccount{})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, []model.BankAccount{account})
}

func (h *apiHandler) updateAccount(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Name     string          `json:"name"`
		Balance  decimal.Decimal `json:"balance"`
		Currency string          `json:"currency"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	account, _ := h.fake.Account()
	account.ID = pathID(req)
	account.Name = body.Name
	account.Balance = body.Balance
	account.Currency = body.Currency

	updated, err := h.fake.UpdateAccount(callContext(req), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *apiHandler) categories(w http.ResponseWriter, req *http.Request) {
	cats, err := h.fake.FetchCategories(callContext(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *apiHandler) categoriesByType(w http.ResponseWriter, req *http.Request) {
	income, err := strconv.ParseBool(mux.Vars(req)["income"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	dir := model.DirectionOutcome
	if income {
		dir = model.DirectionIncome
	}
	cats, err := h.fake.FetchCategoriesByDirection(callContext(req), dir)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *apiHandler) period(w http.ResponseWriter, req *http.Request) {
	var interval model.Interval
	for name, dst := range map[string]*time.Time{"start_date": &interval.Start, "end_date": &interval.End} {
		raw := req.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		ts, err := model.ParseTime(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		*dst = ts
	}
	txs, err := h.fake.Fetch(callContext(req), interval)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *apiHandler) create(w http.ResponseWriter, req *http.Request) {
	var tx model.Transaction
	if err := json.NewDecoder(req.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	created, err := h.fake.Create(callContext(req), tx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *apiHandler) update(w http.ResponseWriter, req *http.Request) {
	var tx model.Transaction
	if err := json.NewDecoder(req.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	tx.ID = pathID(req)
	updated, err := h.fake.Update(callContext(req), tx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *apiHandler) remove(w http.ResponseWriter, req *http.Request) {
	if err := h.fake.Delete(callContext(req), pathID(req)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
