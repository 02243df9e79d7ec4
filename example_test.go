package toil_test

import (
	"context"
	"fmt"
	"log"

	"github.com/askoja/toil"
)

// Example_runner demonstrates the high-level Runner: one background job
// with handlers firing on the pump goroutine.
func Example_runner() {
	ctx := context.Background()

	runner := toil.NewRunner(func(rc *toil.RunContext) (any, error) {
		for pct := 25; pct <= 100; pct += 25 {
			if err := rc.Checkpoint(); err != nil {
				return nil, err
			}
			rc.Progress(pct)
		}
		return "report.pdf", nil
	}, toil.WithName("export-report"))

	done := make(chan struct{})
	runner.Signals.
		OnResult(func(v any) { fmt.Printf("produced %v\n", v) }).
		OnFinished(func(success bool) {
			fmt.Printf("finished, success=%v\n", success)
			close(done)
		})

	if err := runner.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer runner.Stop()

	if err := runner.Run(ctx); err != nil {
		log.Fatal(err)
	}
	<-done

	// Output:
	// produced report.pdf
	// finished, success=true
}

// Example_pool demonstrates fire-and-forget submissions on a worker pool.
func Example_pool() {
	ctx := context.Background()

	pool, err := toil.NewPool(4, 16)
	if err != nil {
		log.Fatal(err)
	}
	pool.Start(ctx, "example-pool")
	defer pool.Stop()

	signals := toil.NewSignals()
	signals.OnResult(func(v any) { fmt.Printf("thumbnail ready: %v\n", v) })

	err = pool.Submit(ctx, signals, func(rc *toil.RunContext) (any, error) {
		return "cat.jpg", nil
	})
	if err != nil {
		log.Fatal(err)
	}

	if _, err := signals.Pump(ctx); err != nil {
		log.Fatal(err)
	}

	// Output:
	// thumbnail ready: cat.jpg
}
