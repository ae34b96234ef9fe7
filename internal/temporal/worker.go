package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker registers the regeneration workflow and its activities on
// taskQueue and starts polling. concurrency bounds the number of libraries
// assembled at once; zero keeps the SDK default.
func StartWorker(c client.Client, taskQueue string, concurrency int) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: concurrency,
	})

	w.RegisterWorkflow(RegenerateWorkflow)
	for _, a := range []any{ListLibrariesActivity, AssembleLibraryActivity, IndexLibraryActivity} {
		w.RegisterActivity(a)
	}

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker on %s: %w", taskQueue, err)
	}
	return w, nil
}
