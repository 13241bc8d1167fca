package ledger

import (
	"sort"

	"github.com/samthambad/naviin/internal/entity"
)

type bookGroup struct {
	side   entity.Side
	symbol string
}

// sortBook applies the canonical open-order ordering after every insertion
// or removal: submission time ascending overall, with price as the dominant
// key between orders sharing a side and symbol. Buys sort most aggressive
// (highest trigger) first, sells most aggressive (lowest trigger) first.
// Orders for different symbols or opposite sides keep their time order, as
// do same-group orders with equal trigger prices.
func sortBook(orders []entity.OpenOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt < orders[j].CreatedAt
	})

	positions := make(map[bookGroup][]int)
	for i, order := range orders {
		key := bookGroup{side: order.Side(), symbol: order.Symbol}
		positions[key] = append(positions[key], i)
	}

	for key, indexes := range positions {
		if len(indexes) < 2 {
			continue
		}

		group := make([]entity.OpenOrder, len(indexes))
		for n, idx := range indexes {
			group[n] = orders[idx]
		}

		buySide := key.side == entity.SideBuy
		sort.SliceStable(group, func(i, j int) bool {
			if buySide {
				return group[i].TriggerPrice.GreaterThan(group[j].TriggerPrice)
			}
			return group[i].TriggerPrice.LessThan(group[j].TriggerPrice)
		})

		for n, idx := range indexes {
			orders[idx] = group[n]
		}
	}
}
