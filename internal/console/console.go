// Package console implements the interactive command loop: one command per
// line on stdin, one human-readable outcome per command.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/samthambad/naviin/internal/entity"
	"github.com/samthambad/naviin/internal/ledger"
	"github.com/samthambad/naviin/internal/service/ordermonitor"
	"github.com/samthambad/naviin/internal/service/portfolio"
	"github.com/samthambad/naviin/internal/service/pricing"
)

const helpText = `commands:
  fund <amount>                     add cash
  withdraw <amount>                 remove cash
  display                           show cash, holdings, open orders, watchlist
  price <symbol>                    quote current price and previous close
  buy <symbol> <qty>                market buy at live price
  sell <symbol> <qty>               market sell at live price
  buylimit <symbol> <qty> <price>   buy when price drops to <price>
  stoploss <symbol> <qty> <price>   sell when price drops to <price>
  takeprofit <symbol> <qty> <price> sell at <price> when price rises to it
  cancel <kind> <symbol> <qty> <price>  remove matching open orders
  addwatch <symbol>                 add symbol to watchlist
  unwatch <symbol>                  remove symbol from watchlist
  watch                             quote every watchlist symbol
  startbg / stopbg                  resume / pause the order monitor
  reset                             wipe the portfolio
  help                              this text
  exit                              quit`

type Console struct {
	svc     *portfolio.Service
	monitor *ordermonitor.MonitorService
	in      io.Reader
	out     io.Writer
}

func New(svc *portfolio.Service, monitor *ordermonitor.MonitorService, in io.Reader, out io.Writer) *Console {
	return &Console{
		svc:     svc,
		monitor: monitor,
		in:      in,
		out:     out,
	}
}

// Run reads commands until exit or EOF.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)

	fmt.Fprintln(c.out, `naviin portfolio console, type "help" for commands`)

	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		output, exit := c.Execute(ctx, scanner.Text())
		if output != "" {
			fmt.Fprintln(c.out, output)
		}
		if exit {
			return nil
		}
	}
}

// Execute runs a single command line and returns its display output plus
// whether the loop should exit.
func (c *Console) Execute(ctx context.Context, line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}

	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "exit", "quit":
		return "bye", true
	case "help":
		return helpText, false
	case "fund":
		return c.oneArg(args, func(arg string) (string, error) {
			return c.svc.Fund(ctx, arg)
		}), false
	case "withdraw":
		return c.oneArg(args, func(arg string) (string, error) {
			return c.svc.Withdraw(ctx, arg)
		}), false
	case "display":
		return c.display(ctx), false
	case "price":
		return c.oneArg(args, func(arg string) (string, error) {
			return c.quoteLine(ctx, normalizeSymbol(arg))
		}), false
	case "buy":
		return c.trade(ctx, args, c.svc.Buy), false
	case "sell":
		return c.trade(ctx, args, c.svc.Sell), false
	case "buylimit":
		return c.placeOrder(ctx, entity.OrderKindBuyLimit, args), false
	case "stoploss":
		return c.placeOrder(ctx, entity.OrderKindStopLoss, args), false
	case "takeprofit":
		return c.placeOrder(ctx, entity.OrderKindTakeProfit, args), false
	case "cancel":
		return c.cancel(ctx, args), false
	case "addwatch":
		return c.oneArg(args, func(arg string) (string, error) {
			return c.svc.Watch(ctx, normalizeSymbol(arg)), nil
		}), false
	case "unwatch":
		return c.oneArg(args, func(arg string) (string, error) {
			return c.svc.Unwatch(ctx, normalizeSymbol(arg)), nil
		}), false
	case "watch":
		return c.watchlistQuotes(ctx), false
	case "startbg":
		c.monitor.Resume()
		return "order monitor running", false
	case "stopbg":
		c.monitor.Pause()
		return "order monitor paused", false
	case "reset":
		message, err := c.svc.Reset(ctx)
		if err != nil {
			return friendlyError(err), false
		}
		return message, false
	default:
		return fmt.Sprintf("unknown command %q, type \"help\"", command), false
	}
}

func (c *Console) oneArg(args []string, run func(string) (string, error)) string {
	if len(args) != 1 {
		return "expected exactly one argument"
	}

	message, err := run(args[0])
	if err != nil {
		return friendlyError(err)
	}
	return message
}

func (c *Console) trade(ctx context.Context, args []string, run func(context.Context, string, string) (string, error)) string {
	if len(args) != 2 {
		return "usage: <symbol> <quantity>"
	}

	message, err := run(ctx, normalizeSymbol(args[0]), args[1])
	if err != nil {
		return friendlyError(err)
	}
	return message
}

func (c *Console) placeOrder(ctx context.Context, kind entity.OrderKind, args []string) string {
	if len(args) != 3 {
		return "usage: <symbol> <quantity> <price>"
	}

	message, err := c.svc.PlaceOrder(ctx, kind, normalizeSymbol(args[0]), args[1], args[2])
	if err != nil {
		return friendlyError(err)
	}
	return message
}

func (c *Console) cancel(ctx context.Context, args []string) string {
	if len(args) != 4 {
		return "usage: cancel <buylimit|stoploss|takeprofit> <symbol> <quantity> <price>"
	}

	kind, ok := parseOrderKind(args[0])
	if !ok {
		return fmt.Sprintf("unknown order kind %q", args[0])
	}

	message, err := c.svc.CancelOrder(ctx, kind, normalizeSymbol(args[1]), args[2], args[3])
	if err != nil {
		return friendlyError(err)
	}
	return message
}

func (c *Console) quoteLine(ctx context.Context, symbol string) (string, error) {
	current, previousClose, err := c.svc.Quote(ctx, symbol)
	if err != nil {
		return "", err
	}
	if previousClose.IsZero() {
		return fmt.Sprintf("%s: %s", symbol, current), nil
	}

	change := current.Sub(previousClose)
	return fmt.Sprintf("%s: %s (prev close %s, change %s)", symbol, current, previousClose, change), nil
}

func (c *Console) display(ctx context.Context) string {
	snap := c.svc.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "cash balance: %s\n", snap.CashBalance)
	fmt.Fprintf(&b, "available cash: %s\n", c.svc.Ledger().AvailableCash())

	if len(snap.Holdings) == 0 {
		b.WriteString("holdings: none\n")
	} else {
		b.WriteString("holdings:\n")
		for _, holding := range sortedHoldings(snap.Holdings) {
			line := fmt.Sprintf("  %s %s @ avg %s", holding.Symbol, holding.Quantity, holding.AvgCost)
			if price, _, err := c.svc.Quote(ctx, holding.Symbol); err == nil {
				line += fmt.Sprintf(" (market %s, pnl %s)", holding.MarketValue(price), holding.UnrealizedPnl(price))
			}
			b.WriteString(line + "\n")
		}
	}

	if len(snap.OpenOrders) == 0 {
		b.WriteString("open orders: none\n")
	} else {
		b.WriteString("open orders:\n")
		for _, order := range snap.OpenOrders {
			fmt.Fprintf(&b, "  %s\n", order)
		}
	}

	if len(snap.Watchlist) == 0 {
		b.WriteString("watchlist: empty")
	} else {
		b.WriteString("watchlist: " + strings.Join(snap.Watchlist, ", "))
	}

	return b.String()
}

func (c *Console) watchlistQuotes(ctx context.Context) string {
	watchlist := c.svc.Ledger().Watchlist()
	if len(watchlist) == 0 {
		return "watchlist is empty, add symbols with addwatch"
	}

	lines := make([]string, 0, len(watchlist))
	for _, symbol := range watchlist {
		line, err := c.quoteLine(ctx, symbol)
		if err != nil {
			line = fmt.Sprintf("%s: no quote", symbol)
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func sortedHoldings(holdings map[string]entity.Holding) []entity.Holding {
	symbols := make([]string, 0, len(holdings))
	for symbol := range holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	out := make([]entity.Holding, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, holdings[symbol])
	}
	return out
}

func parseOrderKind(raw string) (entity.OrderKind, bool) {
	switch strings.ToLower(raw) {
	case "buylimit":
		return entity.OrderKindBuyLimit, true
	case "stoploss":
		return entity.OrderKindStopLoss, true
	case "takeprofit":
		return entity.OrderKindTakeProfit, true
	}
	return "", false
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(symbol)
}

func friendlyError(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid amount: expected a positive number"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient balance for that withdrawal"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient available cash (open buy limits reserve funds)"
	case errors.Is(err, ledger.ErrInsufficientHoldings):
		return "insufficient available holdings (open sell orders reserve shares)"
	case errors.Is(err, pricing.ErrPriceUnavailable):
		return "no quote available for that symbol right now"
	default:
		return "error: " + err.Error()
	}
}
