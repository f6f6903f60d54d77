// Package executor provides a bounded worker pool for independent tasks.
//
// The pool runs at most N tasks at a time. Tasks are isolated: a failing or
// panicking task is recorded as a failed Result and never stops the others.
//
// # Basic Usage
//
//	pool := executor.NewPool(20, logger)
//
//	for _, project := range projects {
//	    pool.Submit(executor.Task{
//	        Key: project.ID,
//	        Execute: func(ctx context.Context) (any, error) {
//	            return fetch(ctx, project)
//	        },
//	    })
//	}
//
//	results := pool.Execute(ctx)
//
// # Result Collection
//
// Results come back in submission order, exactly one per task. Each worker
// writes the slot of the task it ran, so no two goroutines ever write the
// same slot and the collector needs no lock.
//
// # Context Cancellation
//
// When ctx ends, no further tasks are dispatched and in-flight tasks see the
// cancelled context. Results already produced are kept; tasks never started
// carry an error wrapping ErrNotExecuted.
//
//	results := pool.Execute(ctx)
//	fmt.Println(executor.Summarize(results))
package executor
