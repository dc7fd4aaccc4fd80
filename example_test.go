package fleet_test

import (
	"fmt"

	"github.com/Swind/go-fleet"
)

// ExampleFleet_Run sums 0..999 with one accumulator per context.
func ExampleFleet_Run() {
	f := fleet.NewWithConfig(4, nil)
	defer f.Free()

	var sums *fleet.Local[uint64]
	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		sums = fleet.NewLocal[uint64](ctx, nil, nil)
		for i := 0; i < 1000; i++ {
			ctx.SubmitLater(func(ctx *fleet.Context, t *fleet.Task) {
				*sums.Get(ctx) += uint64(t.Payload.(int))
			}, i)
		}
	}, nil)

	var total uint64
	sums.ForEach(func(_ int, v *uint64) { total += *v })
	fmt.Println(total)

	// Output:
	// 499500
}

// ExampleGroup runs a second group only after the first one finished.
func ExampleGroup() {
	f := fleet.NewWithConfig(2, nil)
	defer f.Free()

	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		load := fleet.NewGroup(ctx)
		report := fleet.NewGroup(ctx)
		for i := 0; i < 3; i++ {
			load.Submit(ctx, func(*fleet.Context, *fleet.Task) {}, i)
		}
		report.Submit(ctx, func(*fleet.Context, *fleet.Task) {
			fmt.Println("all loaded")
		}, nil)
		load.RunAfter(ctx, report)
		load.Start(ctx)
	}, nil)

	// Output:
	// all loaded
}

// ExampleContext_Then chains two steps.
func ExampleContext_Then() {
	f := fleet.NewWithConfig(2, nil)
	defer f.Free()

	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		ctx.Then(func(*fleet.Context, *fleet.Task) {
			fmt.Println("first")
		}, nil, func(*fleet.Context, *fleet.Task) {
			fmt.Println("second")
		}, nil)
	}, nil)

	// Output:
	// first
	// second
}

// ExampleContext_SubmitRange visits a range of indices in bulk.
func ExampleContext_SubmitRange() {
	f := fleet.NewWithConfig(1, nil)
	defer f.Free()

	var sum int
	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		ctx.SubmitRange(func(_ *fleet.Context, _ any, i int) {
			sum += i
		}, nil, 0, 100)
	}, nil)
	fmt.Println(sum)

	// Output:
	// 4950
}
