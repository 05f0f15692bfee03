// Command optioncoredemo wires the order, matching, and Greeks core
// together end to end against an in-memory id allocator/archiver and a
// synthetic quote/trade feed: it submits a market order, a resting
// limit order, and a sell stop against one simulated instrument, and
// registers an option so its Greeks are scanned on every tick. It
// exists to exercise the whole pipeline, not as a production entry
// point (spec.md carries no CLI/config-loading scope of its own).
package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/epic1st/optioncore/backend/config"
	"github.com/epic1st/optioncore/backend/internal/greeks"
	"github.com/epic1st/optioncore/backend/internal/instrument"
	"github.com/epic1st/optioncore/backend/internal/marketdata"
	"github.com/epic1st/optioncore/backend/internal/matching"
	"github.com/epic1st/optioncore/backend/internal/oms"
	"github.com/epic1st/optioncore/backend/internal/order"
	"github.com/epic1st/optioncore/backend/internal/provider"
	"github.com/epic1st/optioncore/backend/logging"
)

func main() {
	log := logging.NewLogger(logging.INFO, os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", err)
	}

	log.Info("starting optioncore demo",
		logging.String("environment", cfg.Environment),
		logging.Component("main"),
	)

	underlying := instrument.NewEquity("AAPL", "AAPL", 0.01)
	call := instrument.NewOption("AAPL-20260918-C-220", "AAPL", instrument.Call,
		220.0, time.Now().AddDate(0, 2, 0), 100, 0.01)

	engine := matching.NewEngine(underlying.Symbol(), underlying.TickSize())
	engine.SetQueueDelay(cfg.Matching.QueueDelay)
	engine.SetCommission(cfg.Matching.CommissionRate)
	engine.OnFill.Add(func(f matching.FillEvent) {
		log.Info("fill", logging.OrderID(formatUint(f.OrderID)), logging.Symbol(underlying.Symbol()),
			logging.Float64("price", f.Execution.Price), logging.Int64("size", f.Execution.Size))
	})
	engine.OnCancelled.Add(func(id uint64) {
		log.Info("cancelled", logging.OrderID(formatUint(id)))
	})
	engine.OnNoOrderFound.Add(func(id uint64) {
		log.Warn("no order found", logging.OrderID(formatUint(id)))
	})

	sim := provider.NewSimulated(engine)
	ctx := context.Background()
	if err := sim.Connect(ctx); err != nil {
		log.Fatal("provider connect failed", err)
	}

	ids := oms.NewInMemoryIDAllocator(0)
	archiver := oms.NewInMemoryArchiver()
	manager := oms.NewManager(ids, archiver)
	manager.OnNoOrderFound.Add(func(id uint64) {
		log.Warn("order manager: no order found", logging.OrderID(formatUint(id)))
	})

	watch := greeks.NewSimpleWatch()
	greeksEngine := greeks.NewEngine(greeks.Config{
		WatchBuilder: func(ctx context.Context, u instrument.Instrument) (greeks.Watch, error) {
			return watch, nil
		},
		OptionBuilder: func(ctx context.Context, o instrument.Instrument) (greeks.OptionHandle, error) {
			return o.ID(), nil
		},
		Pricing:    demoPricing,
		Sink:       loggingSink{log: log},
		ScanPeriod: cfg.Greeks.ScanPeriod,
	})
	greeksEngine.Start(ctx)
	defer greeksEngine.Stop()
	greeksEngine.Add(call, underlying)

	sim.AddQuoteHandler(func(q marketdata.Quote) { watch.Publish(q) })

	placeOrder(ctx, log, manager, sim, underlying, order.Market, order.Buy, 150, 0, 0)
	placeOrder(ctx, log, manager, sim, underlying, order.Limit, order.Buy, 500, 100.05, 0)
	placeOrder(ctx, log, manager, sim, underlying, order.Stop, order.Sell, 100, 0, 49.90)

	sim.FeedQuote(marketdata.Quote{InstrumentID: underlying.ID(), Timestamp: time.Now(), BidPrice: 100.00, BidSize: 100, AskPrice: 100.05, AskSize: 200})
	time.Sleep(50 * time.Millisecond)
	sim.FeedQuote(marketdata.Quote{InstrumentID: underlying.ID(), Timestamp: time.Now(), BidPrice: 100.00, BidSize: 100, AskPrice: 100.05, AskSize: 400})

	log.Info("active order count", logging.Int("count", manager.ActiveCount()))
	log.Info("archived records", logging.Int("count", len(archiver.Records())))
}

func placeOrder(ctx context.Context, log *logging.Logger, manager *oms.Manager, p oms.Provider, inst instrument.Instrument, typ order.Type, side order.Side, qty int64, price1, price2 float64) {
	id, err := manager.NextOrderID(ctx)
	if err != nil {
		log.Error("failed to allocate order id", err)
		return
	}
	o, err := order.New(id, inst, typ, side, qty, price1, price2, time.Now())
	if err != nil {
		log.Error("failed to construct order", err, logging.OrderID(formatUint(id)))
		return
	}
	if err := manager.PlaceOrder(ctx, p, o); err != nil {
		log.Error("failed to place order", err, logging.OrderID(formatUint(id)))
	}
}

// demoPricing is a placeholder pricing plug-in: the core depends on an
// external model (spec.md §1 Non-goal), so the demo only stamps an
// intrinsic-value approximation rather than a real Greeks calculation.
func demoPricing(ctx context.Context, option instrument.Instrument, quote marketdata.Quote, sink greeks.GreekSink) {
	strike, _ := option.Strike()
	mid := (quote.BidPrice + quote.AskPrice) / 2
	intrinsic := mid - strike
	if intrinsic < 0 {
		intrinsic = 0
	}
	sink.OnGreek(marketdata.Greek{
		InstrumentID:     option.ID(),
		Timestamp:        quote.Timestamp,
		TheoreticalValue: intrinsic,
	})
}

type loggingSink struct {
	log *logging.Logger
}

func (s loggingSink) OnGreek(g marketdata.Greek) {
	s.log.Info("greek", logging.Symbol(g.InstrumentID), logging.Float64("theo", g.TheoreticalValue))
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
