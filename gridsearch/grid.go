package gridsearch

import (
	"github.com/sartorproj/salescast/sarima"
)

// Grid enumerates the candidate orders for differencing order d. The order
// is p, q, P, D, Q from outermost to innermost loop.
func Grid(d int, cfg *Config) []sarima.Order {
	size := (cfg.MaxP + 1) * (cfg.MaxQ + 1) * (cfg.MaxSP + 1) * (cfg.MaxSD + 1) * (cfg.MaxSQ + 1)
	orders := make([]sarima.Order, 0, size)
	for p := 0; p <= cfg.MaxP; p++ {
		for q := 0; q <= cfg.MaxQ; q++ {
			for sp := 0; sp <= cfg.MaxSP; sp++ {
				for sd := 0; sd <= cfg.MaxSD; sd++ {
					for sq := 0; sq <= cfg.MaxSQ; sq++ {
						orders = append(orders, sarima.Order{
							P: p, D: d, Q: q,
							SP: sp, SD: sd, SQ: sq,
							M: cfg.Period,
						})
					}
				}
			}
		}
	}
	return orders
}
