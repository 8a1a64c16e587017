// aurumbench is a worked example driving a World through a few ticks: it
// loads configuration, wires a worker-pool dispatcher and structured
// logging, registers its component types, spawns a population of entities,
// runs a movement process, reports archetype sharing through the storage
// package's deduplication view, migrates a subset of entities into a second
// world, and prints a metrics summary.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ivancb/aurumecs"
	"github.com/ivancb/aurumecs/ecs/dispatch"
	"github.com/ivancb/aurumecs/ecs/storage"
	"github.com/ivancb/aurumecs/ecs/telemetry"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML world config (optional)")
	entityCount := flag.Int("entities", 256, "number of entities to spawn")
	ticks := flag.Int("ticks", 8, "number of ticks to run")
	tracePath := flag.String("trace", "", "write a runtime/trace capture of the tick loop to this path (optional)")
	flag.Parse()

	cfg := ecs.DefaultWorldConfig()
	if *configPath != "" {
		loaded, err := ecs.LoadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zapLogger.Sync()
	logger := telemetry.NewLoggingObserver(newECSLogger(zapLogger), telemetry.LogFormatKeyValue)

	collector := telemetry.NewPrometheusCollector(nil)
	observer := telemetry.Composite{Observers: []ecs.ProcessGroupObserver{logger, collector}}

	w := ecs.NewWorld(
		ecs.WithReserve(cfg.Entities.Reserve),
		ecs.WithDispatcher(dispatch.NewWorkerPool(cfg.Workers.PoolSize)),
		ecs.WithLogger(newECSLogger(zapLogger)),
		ecs.WithObserver(observer),
	)

	posID, err := ecs.RegisterComponent[position](w)
	if err != nil {
		return fmt.Errorf("register position: %w", err)
	}
	velID, err := ecs.RegisterComponent[velocity](w)
	if err != nil {
		return fmt.Errorf("register velocity: %w", err)
	}
	if _, err := ecs.RegisterComponent[archetype](w); err != nil {
		return fmt.Errorf("register archetype: %w", err)
	}

	spawnPopulation(w, *entityCount)
	w.AddProcess(&moveProcess{world: w, pos: posID, vel: velID}, 0)

	var traceWriter io.Writer
	if *tracePath != "" {
		f, err := os.Create(*tracePath)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		defer f.Close()
		traceWriter = f
	}

	runTicks := func() error {
		for i := 0; i < *ticks; i++ {
			if err := w.Tick(1.0 / 60.0); err != nil {
				return fmt.Errorf("tick %d: %w", i, err)
			}
		}
		return nil
	}
	if err := dispatch.RunWithTrace(traceWriter, runTicks); err != nil {
		return err
	}

	archetypeID, err := ecs.ComponentIDOf[archetype](w)
	if err != nil {
		return fmt.Errorf("resolve archetype id: %w", err)
	}
	view := storage.NewDeduplicationView(w, archetypeID)
	stats := view.Stats()
	fmt.Printf("archetypes: %d entities sharing %d unique values (ratio %.2f)\n",
		stats.EntityCount, stats.UniqueValueCount, stats.SharingRatio)

	dst := ecs.NewWorld()
	if _, err := ecs.RegisterComponent[position](dst); err != nil {
		return fmt.Errorf("register position on destination: %w", err)
	}
	if _, err := ecs.RegisterComponent[velocity](dst); err != nil {
		return fmt.Errorf("register velocity on destination: %w", err)
	}
	if _, err := ecs.RegisterComponent[archetype](dst); err != nil {
		return fmt.Errorf("register archetype on destination: %w", err)
	}

	migrated := migrateSample(dst, w, *entityCount/8)
	fmt.Printf("migrated %d entities into a second world\n", migrated)

	metrics := w.Metrics()
	fmt.Printf("tick timings: entity=%s component=%s process=%s total=%s\n",
		metrics.EntityUpdateTime, metrics.ComponentUpdateTime, metrics.ProcessTime, metrics.TotalTime)

	return nil
}

// migrateSample migrates the first n entities the read-only iterator visits,
// stopping early on the first migration failure.
func migrateSample(dst, src *ecs.World, n int) int {
	if n <= 0 {
		return 0
	}
	posID, err := ecs.ComponentIDOf[position](src)
	if err != nil {
		return 0
	}
	it, err := ecs.NewReadOnlyIterator(src, []ecs.ComponentID{posID}, nil)
	if err != nil {
		return 0
	}

	var handles []ecs.EntityID
	for it.Advance() && len(handles) < n {
		h, err := it.EntityRef()
		if err != nil {
			continue
		}
		handles = append(handles, h)
	}

	migrated := 0
	for _, h := range handles {
		if _, err := ecs.Migrate(dst, src, h); err != nil {
			break
		}
		migrated++
	}
	return migrated
}
