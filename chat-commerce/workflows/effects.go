package workflows

import (
	"go.temporal.io/sdk/workflow"
)

// effect is one independent best-effort step run after a verified payment
type effect struct {
	name string
	run  func(ctx workflow.Context) error
}

type effectOutcome struct {
	name string
	err  error
}

// fanOut runs every effect concurrently and waits for all of them.
// Outcomes come back in the order the effects were given; a failing effect
// never stops the others.
func fanOut(ctx workflow.Context, effects ...effect) []effectOutcome {
	outcomes := make([]effectOutcome, len(effects))
	wg := workflow.NewWaitGroup(ctx)
	for i, e := range effects {
		i, e := i, e
		outcomes[i].name = e.name
		wg.Add(1)
		workflow.Go(ctx, func(gctx workflow.Context) {
			defer wg.Done()
			outcomes[i].err = e.run(gctx)
		})
	}
	wg.Wait(ctx)
	return outcomes
}
