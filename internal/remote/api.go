package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// queryTimeLayout is ISO 8601 with milliseconds, as the server expects.
const queryTimeLayout = "2006-01-02T15:04:05.000Z07:00"

type transactionRequest struct {
	AccountID       *int64          `json:"accountId"`
	CategoryID      *int64          `json:"categoryId"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate model.Timestamp `json:"transactionDate"`
	Comment         *string         `json:"comment"`
}

func newTransactionRequest(tx model.Transaction) transactionRequest {
	return transactionRequest{
		AccountID:       tx.AccountID,
		CategoryID:      tx.CategoryID,
		Amount:          tx.Amount,
		TransactionDate: model.Timestamp(tx.TransactionDate),
		Comment:         tx.Comment,
	}
}

type accountRequest struct {
	Name     string          `json:"name"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// FetchPrimary returns the first account of the user.
// An empty account list is reported as a 404.
func (c *Client) FetchPrimary(ctx context.Context) (model.BankAccount, error) {
	var accounts []model.BankAccount
	if err := c.do(ctx, http.MethodGet, "accounts", nil, nil, &accounts); err != nil {
		return model.BankAccount{}, err
	}
	if len(accounts) == 0 {
		return model.BankAccount{}, &StatusError{Method: http.MethodGet, Path: "accounts", StatusCode: http.StatusNotFound}
	}
	return accounts[0], nil
}

// UpdateAccount sends the editable fields of account and returns the server copy.
func (c *Client) UpdateAccount(ctx context.Context, account model.BankAccount) (model.BankAccount, error) {
	var out model.BankAccount
	body := accountRequest{Name: account.Name, Balance: account.Balance, Currency: account.Currency}
	if err := c.do(ctx, http.MethodPut, "accounts/"+strconv.FormatInt(account.ID, 10), nil, body, &out); err != nil {
		return model.BankAccount{}, err
	}
	return out, nil
}

// FetchCategories returns the whole category catalog.
func (c *Client) FetchCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := c.do(ctx, http.MethodGet, "categories", nil, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// FetchCategoriesByDirection asks the server for the income or outcome categories only.
func (c *Client) FetchCategoriesByDirection(ctx context.Context, dir model.Direction) ([]model.Category, error) {
	var cats []model.Category
	path := "categories/type/" + strconv.FormatBool(dir.IsIncome())
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// Fetch returns the primary account's transactions inside interval.
// The primary account is resolved first; its failure fails the fetch.
func (c *Client) Fetch(ctx context.Context, interval model.Interval) ([]model.Transaction, error) {
	account, err := c.FetchPrimary(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if !interval.Start.IsZero() {
		query.Set("start_date", interval.Start.UTC().Format(queryTimeLayout))
	}
	if !interval.End.IsZero() {
		query.Set("end_date", interval.End.UTC().Format(queryTimeLayout))
	}

	var txs []model.Transaction
	path := "transactions/account/" + strconv.FormatInt(account.ID, 10) + "/period"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	return txs, nil
}

// Create posts tx and returns the server copy with its assigned id.
func (c *Client) Create(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	var out model.Transaction
	if err := c.do(ctx, http.MethodPost, "transactions", nil, newTransactionRequest(tx), &out); err != nil {
		return model.Transaction{}, err
	}
	return out, nil
}

// Update replaces the transaction tx.ID on the server.
func (c *Client) Update(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	var out model.Transaction
	path := "transactions/" + strconv.FormatInt(tx.ID, 10)
	if err := c.do(ctx, http.MethodPut, path, nil, newTransactionRequest(tx), &out); err != nil {
		return model.Transaction{}, err
	}
	if out.ID == 0 {
		out.ID = tx.ID
	}
	return out, nil
}

// Delete removes the transaction with the given id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "transactions/"+strconv.FormatInt(id, 10), nil, nil, nil)
}
