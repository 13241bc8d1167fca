package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samthambad/naviin/internal/ledger"
	"github.com/samthambad/naviin/internal/service/ordermonitor"
	"github.com/samthambad/naviin/internal/service/portfolio"
)

type fixedPrices struct {
	current map[string]decimal.Decimal
}

func (p *fixedPrices) CurrentPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	return p.current[symbol], nil
}

func (p *fixedPrices) PreviousClose(_ context.Context, symbol string) (decimal.Decimal, error) {
	return p.current[symbol], nil
}

func newTestConsole(prices map[string]decimal.Decimal) *Console {
	book := ledger.New()
	source := &fixedPrices{current: prices}
	svc := portfolio.NewService(book, source, nil)
	monitor := ordermonitor.NewMonitorService(book, source, nil, nil, 0)
	return New(svc, monitor, strings.NewReader(""), &bytes.Buffer{})
}

func TestExecuteFundDisplayWithdraw(t *testing.T) {
	c := newTestConsole(nil)
	ctx := context.Background()

	out, exit := c.Execute(ctx, "fund 1000")
	assert.False(t, exit)
	assert.Contains(t, out, "1000")

	out, _ = c.Execute(ctx, "withdraw 400")
	assert.Contains(t, out, "600")

	out, _ = c.Execute(ctx, "display")
	assert.Contains(t, out, "cash balance: 600")
	assert.Contains(t, out, "holdings: none")
}

func TestExecuteBuyAndDisplayHoldings(t *testing.T) {
	c := newTestConsole(map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(150)})
	ctx := context.Background()

	c.Execute(ctx, "fund 10000")
	out, _ := c.Execute(ctx, "buy aapl 10")
	assert.Contains(t, out, "AAPL")

	out, _ = c.Execute(ctx, "display")
	assert.Contains(t, out, "AAPL 10 @ avg 150")
}

func TestExecuteFriendlyErrors(t *testing.T) {
	c := newTestConsole(nil)
	ctx := context.Background()

	out, _ := c.Execute(ctx, "fund abc")
	assert.Contains(t, out, "invalid amount")

	out, _ = c.Execute(ctx, "withdraw 50")
	assert.Contains(t, out, "insufficient balance")

	out, _ = c.Execute(ctx, "buylimit AAPL 10 150")
	assert.Contains(t, out, "insufficient available cash")
}

func TestExecuteOrderLifecycle(t *testing.T) {
	c := newTestConsole(nil)
	ctx := context.Background()

	c.Execute(ctx, "fund 2000")
	out, _ := c.Execute(ctx, "buylimit AAPL 10 150")
	assert.Contains(t, out, "BUY_LIMIT AAPL 10 @ 150")

	out, _ = c.Execute(ctx, "cancel buylimit AAPL 10 150")
	assert.Contains(t, out, "cancelled 1")

	out, _ = c.Execute(ctx, "cancel buylimit AAPL 10 150")
	assert.Equal(t, "no matching open order", out)
}

func TestExecuteWatchlist(t *testing.T) {
	c := newTestConsole(map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(150)})
	ctx := context.Background()

	out, _ := c.Execute(ctx, "addwatch aapl")
	assert.Contains(t, out, "watching AAPL")

	out, _ = c.Execute(ctx, "watch")
	assert.Contains(t, out, "AAPL: 150")

	out, _ = c.Execute(ctx, "unwatch AAPL")
	assert.Contains(t, out, "stopped watching AAPL")

	out, _ = c.Execute(ctx, "watch")
	assert.Contains(t, out, "watchlist is empty")
}

func TestExecuteMonitorToggle(t *testing.T) {
	c := newTestConsole(nil)
	ctx := context.Background()

	out, _ := c.Execute(ctx, "stopbg")
	assert.Equal(t, "order monitor paused", out)
	assert.False(t, c.monitor.Running())

	out, _ = c.Execute(ctx, "startbg")
	assert.Equal(t, "order monitor running", out)
	assert.True(t, c.monitor.Running())
}

func TestExecuteExitAndUnknown(t *testing.T) {
	c := newTestConsole(nil)
	ctx := context.Background()

	out, exit := c.Execute(ctx, "exit")
	assert.True(t, exit)
	assert.Equal(t, "bye", out)

	out, exit = c.Execute(ctx, "frobnicate")
	assert.False(t, exit)
	assert.Contains(t, out, "unknown command")
}

func TestRunReadsUntilExit(t *testing.T) {
	book := ledger.New()
	source := &fixedPrices{}
	svc := portfolio.NewService(book, source, nil)
	monitor := ordermonitor.NewMonitorService(book, source, nil, nil, 0)

	var out bytes.Buffer
	c := New(svc, monitor, strings.NewReader("fund 500\nexit\n"), &out)

	require.NoError(t, c.Run(context.Background()))
	assert.Contains(t, out.String(), "funded 500")
	assert.Contains(t, out.String(), "bye")
}
