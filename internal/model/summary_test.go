package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	categories := []Category{
		{ID: 1, Name: "Salary", Emoji: "💰", Direction: DirectionIncome},
		{ID: 2, Name: "Food", Emoji: "🍔", Direction: DirectionOutcome},
		{ID: 3, Name: "Rent", Emoji: "🏠", Direction: DirectionOutcome},
	}
	txs := []Transaction{
		{ID: 1, CategoryID: Int64(1), Amount: decimal.RequireFromString("1000")},
		{ID: 2, CategoryID: Int64(2), Amount: decimal.RequireFromString("150.50")},
		{ID: 3, CategoryID: Int64(2), Amount: decimal.RequireFromString("49.50")},
		{ID: 4, CategoryID: Int64(3), Amount: decimal.RequireFromString("200")},
		{ID: 5, CategoryID: Int64(99), Amount: decimal.RequireFromString("7")},
		{ID: 6, Amount: decimal.RequireFromString("3")},
	}

	s := Summarize(txs, categories)

	assert.True(t, decimal.RequireFromString("1000").Equal(s.Income))
	assert.True(t, decimal.RequireFromString("400").Equal(s.Outcome))
	assert.True(t, decimal.RequireFromString("600").Equal(s.Net))
	assert.True(t, decimal.RequireFromString("10").Equal(s.Uncategorized))

	require.Len(t, s.Categories, 3)
	assert.Equal(t, int64(1), s.Categories[0].CategoryID)
	// Food and Rent both total 200; ties break by id.
	assert.Equal(t, int64(2), s.Categories[1].CategoryID)
	assert.Equal(t, 2, s.Categories[1].Count)
	assert.Equal(t, int64(3), s.Categories[2].CategoryID)

	assert.True(t, decimal.RequireFromString("50").Equal(s.Categories[1].Share(s.Outcome)))
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil)
	assert.True(t, s.Net.IsZero())
	assert.Empty(t, s.Categories)
	assert.True(t, CategoryTotal{}.Share(decimal.Zero).IsZero())
}
