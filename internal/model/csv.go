package model

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CSVHeader is the column layout used by WriteCSV and expected by ReadCSV.
var CSVHeader = []string{"id", "accountId", "categoryId", "amount", "transactionDate", "comment", "createdAt", "updatedAt"}

// WriteCSV writes txs with a header row.
func WriteCSV(w io.Writer, txs []Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		record := []string{
			strconv.FormatInt(tx.ID, 10),
			optionalID(tx.AccountID),
			optionalID(tx.CategoryID),
			tx.Amount.String(),
			formatOptionalTime(tx.TransactionDate),
			"",
			formatOptionalTime(tx.CreatedAt),
			formatOptionalTime(tx.UpdatedAt),
		}
		if tx.Comment != nil {
			record[5] = *tx.Comment
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", tx.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses transactions written by WriteCSV. Columns are matched by
// header name, so extra or reordered columns are tolerated.
func ReadCSV(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"id", "amount", "transactionDate"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("read csv: missing column %q", required)
		}
	}

	var txs []Transaction
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		tx, err := parseCSVRecord(record, col)
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func parseCSVRecord(record []string, col map[string]int) (Transaction, error) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var tx Transaction
	var err error
	if tx.ID, err = strconv.ParseInt(field("id"), 10, 64); err != nil {
		return Transaction{}, fmt.Errorf("id: %w", err)
	}
	if tx.AccountID, err = parseOptionalID(field("accountId")); err != nil {
		return Transaction{}, fmt.Errorf("accountId: %w", err)
	}
	if tx.CategoryID, err = parseOptionalID(field("categoryId")); err != nil {
		return Transaction{}, fmt.Errorf("categoryId: %w", err)
	}
	if tx.Amount, err = decimal.NewFromString(field("amount")); err != nil {
		return Transaction{}, fmt.Errorf("amount: %w", err)
	}
	if tx.TransactionDate, err = ParseTime(field("transactionDate")); err != nil {
		return Transaction{}, err
	}
	if tx.CreatedAt, err = ParseTime(field("createdAt")); err != nil {
		return Transaction{}, err
	}
	if tx.UpdatedAt, err = ParseTime(field("updatedAt")); err != nil {
		return Transaction{}, err
	}
	tx.Comment = String(field("comment"))
	return tx, tx.Validate()
}

func optionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func parseOptionalID(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return FormatTime(t)
}
