package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/samthambad/naviin/internal/entity"
)

func order(kind entity.OrderKind, symbol, quantity, trigger string, createdAt int64) entity.OpenOrder {
	return entity.OpenOrder{
		Kind:         kind,
		Symbol:       symbol,
		Quantity:     dec(quantity),
		TriggerPrice: dec(trigger),
		CreatedAt:    createdAt,
	}
}

func triggers(orders []entity.OpenOrder) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.TriggerPrice.String()
	}
	return out
}

func TestSortBookBuysMostAggressiveFirst(t *testing.T) {
	book := []entity.OpenOrder{
		order(entity.OrderKindBuyLimit, "AAPL", "10", "145", 1),
		order(entity.OrderKindBuyLimit, "AAPL", "10", "155", 2),
		order(entity.OrderKindBuyLimit, "AAPL", "10", "150", 3),
	}

	sortBook(book)

	assert.Equal(t, []string{"155", "150", "145"}, triggers(book))
}

func TestSortBookSellsMostAggressiveFirst(t *testing.T) {
	book := []entity.OpenOrder{
		order(entity.OrderKindStopLoss, "AAPL", "5", "140", 1),
		order(entity.OrderKindStopLoss, "AAPL", "5", "120", 2),
		order(entity.OrderKindStopLoss, "AAPL", "5", "130", 3),
	}

	sortBook(book)

	assert.Equal(t, []string{"120", "130", "140"}, triggers(book))
}

func TestSortBookKeepsCrossSymbolTimeOrder(t *testing.T) {
	book := []entity.OpenOrder{
		order(entity.OrderKindBuyLimit, "MSFT", "1", "300", 3),
		order(entity.OrderKindBuyLimit, "AAPL", "1", "150", 1),
		order(entity.OrderKindBuyLimit, "GOOG", "1", "2800", 2),
	}

	sortBook(book)

	symbols := []string{book[0].Symbol, book[1].Symbol, book[2].Symbol}
	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, symbols)
}

func TestSortBookPriceDominatesTimestampWithinGroup(t *testing.T) {
	book := []entity.OpenOrder{
		order(entity.OrderKindBuyLimit, "AAPL", "1", "145", 1),
		order(entity.OrderKindBuyLimit, "AAPL", "1", "155", 5),
	}

	sortBook(book)

	// Later but more aggressive order moves ahead.
	assert.Equal(t, []string{"155", "145"}, triggers(book))
}

func TestSortBookOppositeSidesKeepTimeOrder(t *testing.T) {
	book := []entity.OpenOrder{
		order(entity.OrderKindStopLoss, "AAPL", "1", "120", 2),
		order(entity.OrderKindBuyLimit, "AAPL", "1", "100", 1),
	}

	sortBook(book)

	assert.Equal(t, entity.SideBuy, book[0].Side())
	assert.Equal(t, entity.SideSell, book[1].Side())
}

func TestSortBookStopLossAndTakeProfitShareSellGroup(t *testing.T) {
	book := []entity.OpenOrder{
		order(entity.OrderKindTakeProfit, "AAPL", "1", "200", 1),
		order(entity.OrderKindStopLoss, "AAPL", "1", "120", 2),
	}

	sortBook(book)

	// Both are sell side for the same symbol, so the lower trigger leads.
	assert.Equal(t, []string{"120", "200"}, triggers(book))
}

func TestSortBookEqualPricesKeepTimeOrder(t *testing.T) {
	first := order(entity.OrderKindBuyLimit, "AAPL", "1", "150", 1)
	second := order(entity.OrderKindBuyLimit, "AAPL", "2", "150", 2)
	book := []entity.OpenOrder{second, first}

	sortBook(book)

	assert.True(t, book[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, book[1].Quantity.Equal(decimal.NewFromInt(2)))
}
