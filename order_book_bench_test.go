package match

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
)

func BenchmarkPlaceOrders(b *testing.B) {
	book := NewOrderBook("BTC-USDT", nil)

	// Use fixed seed for repeatability
	rng := rand.New(rand.NewSource(42))

	// Pre-compute decimal prices to reduce allocations in hot loop
	// 1000 ticks: 500 buy-side, 500 sell-side around a mid price of 10000
	priceCache := make([]decimal.Decimal, 1001)
	for i := int64(0); i <= 1000; i++ {
		priceCache[i] = decimal.NewFromInt(9500 + i)
	}
	sizeOne := decimal.NewFromInt(1)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		var side Side
		var priceIdx int

		// 80/20 Distribution
		r := rng.Intn(100)
		if r < 80 {
			// 80% in Top 10 ticks (10 for Buy, 10 for Sell)
			offset := rng.Intn(10) + 1
			if rng.Intn(2) == 0 {
				side = Buy
				priceIdx = 500 - offset
			} else {
				side = Sell
				priceIdx = 500 + offset
			}
		} else {
			// 20% in remaining 490 ticks per side
			offset := rng.Intn(490) + 11
			if rng.Intn(2) == 0 {
				side = Buy
				priceIdx = 500 - offset
			} else {
				side = Sell
				priceIdx = 500 + offset
			}
		}

		order, err := NewOrder(strconv.Itoa(i), Limit, side, sizeOne, priceCache[priceIdx])
		if err != nil {
			b.Fatal(err)
		}
		if _, err := book.AddOrder(order); err != nil {
			b.Fatal(err)
		}
	}

	b.StopTimer()

	stats := book.Stats()
	fmt.Printf("\nFinal Order Book State: Bids=%d levels, Asks=%d levels\n", stats.BidDepthCount, stats.AskDepthCount)

	// Report custom metric: orders per second
	totalSeconds := b.Elapsed().Seconds()
	if totalSeconds > 0 {
		b.ReportMetric(float64(b.N)/totalSeconds, "orders/sec")
	}
}

func BenchmarkMatching(b *testing.B) {
	book := NewOrderBook("MATCH-USDT", nil)

	price := decimal.NewFromInt(10000)
	size := decimal.NewFromInt(1)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		// Place Sell (Resting)
		sell, err := NewOrder("sell-"+strconv.Itoa(i), Limit, Sell, size, price)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := book.AddOrder(sell); err != nil {
			b.Fatal(err)
		}

		// Place Buy (Matches immediately)
		buy, err := NewOrder("buy-"+strconv.Itoa(i), Limit, Buy, size, price)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := book.AddOrder(buy); err != nil {
			b.Fatal(err)
		}
	}

	b.StopTimer()

	// Report ops/sec (each loop is 2 orders)
	totalSeconds := b.Elapsed().Seconds()
	if totalSeconds > 0 {
		b.ReportMetric(float64(b.N)*2/totalSeconds, "orders/sec")
	}
}

func BenchmarkManagerPlaceOrders(b *testing.B) {
	// Ensure dispatcher, pool and producer can run concurrently
	oldProcs := runtime.GOMAXPROCS(runtime.NumCPU())
	defer runtime.GOMAXPROCS(oldProcs)

	ctx := context.Background()
	manager := NewOrderBookManager(WithPublishTrader(NewDiscardPublishTrader()))
	manager.Start()

	symbol := "BTC-USDT"
	rng := rand.New(rand.NewSource(42))

	priceCache := make([]decimal.Decimal, 1001)
	for i := int64(0); i <= 1000; i++ {
		priceCache[i] = decimal.NewFromInt(9500 + i)
	}
	sizeOne := decimal.NewFromInt(1)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		var side Side
		var priceIdx int

		offset := rng.Intn(490) + 11
		if rng.Intn(2) == 0 {
			side = Buy
			priceIdx = 500 - offset
		} else {
			side = Sell
			priceIdx = 500 + offset
		}

		order, err := NewOrder(strconv.Itoa(i), Limit, side, sizeOne, priceCache[priceIdx])
		if err != nil {
			b.Fatal(err)
		}
		if _, err := manager.AddOrder(ctx, symbol, order); err != nil {
			b.Fatal(err)
		}
	}

	b.StopTimer()

	totalSeconds := b.Elapsed().Seconds()
	if totalSeconds > 0 {
		b.ReportMetric(float64(b.N)/totalSeconds, "orders/sec")
	}

	_ = manager.Shutdown(ctx)
}
