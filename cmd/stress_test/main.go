package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/pharmastock/internal/adapter/memory"
	"github.com/rl1809/pharmastock/internal/adapter/storage"
	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/core/service"
	"github.com/rl1809/pharmastock/internal/port"
)

const (
	initialStock  = 20
	totalRequests = 50
	queueSize     = 1000
)

func main() {
	ctx := context.Background()
	log, _ := zap.NewDevelopment()
	defer log.Sync()

	store := memory.NewStore()
	ledger := service.NewStockLedger(store, queueSize, log, nil)

	pharmacyID, err := ledger.AddPharmacy(ctx, "Stress Pharmacy", domain.Location{}, "")
	if err != nil {
		log.Fatal("add pharmacy", zap.Error(err))
	}
	medicineID, err := ledger.AddMedicine(ctx, "Ibuprofen", "400mg", "")
	if err != nil {
		log.Fatal("add medicine", zap.Error(err))
	}
	if _, err := ledger.AddNewMedicineStock(ctx, pharmacyID, medicineID, initialStock); err != nil {
		log.Fatal("init stock", zap.Error(err))
	}

	// Mirror into redis when available so the versioned write path is exercised too
	var sinks []port.StockSink
	var mirror *storage.RedisAdapter
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("connect redis", zap.Error(err))
		}
		defer rdb.Close()
		mirror = storage.NewRedisAdapter(rdb)
		sinks = append(sinks, mirror)
	}

	processor := service.NewMovementProcessor(sinks, nil, 5*time.Second, log, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(0, ledger.GetMovementQueue())
	}()

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := ledger.ChangeMedicineStock(ctx, pharmacyID, medicineID, domain.OperationRemove, 1)
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	ledger.Close()
	<-done

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Removals:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d removals succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	p, err := store.GetPharmacy(ctx, pharmacyID)
	if err != nil {
		log.Fatal("get pharmacy", zap.Error(err))
	}
	ms, _ := p.StockOf(medicineID)
	fmt.Printf("Final Ledger Stock: %d\n", ms.Stock)

	if mirror != nil {
		mirrored, err := mirror.GetStock(ctx, pharmacyID, medicineID)
		if err != nil {
			fmt.Printf("FAIL: read mirrored stock: %v\n", err)
		} else if mirrored != ms.Stock {
			fmt.Printf("FAIL: mirrored stock %d does not match ledger %d\n", mirrored, ms.Stock)
		} else {
			fmt.Printf("PASS: Redis mirror converged to %d\n", mirrored)
		}
	}

	if ms.Stock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", ms.Stock)
	}
}
