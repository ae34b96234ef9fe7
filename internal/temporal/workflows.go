package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RegenerateInput holds the workflow parameters. An empty Libraries list
// regenerates every configured library.
type RegenerateInput struct {
	Libraries []string
	Prune     bool
	Index     bool
}

// RegenerateOutput holds the workflow result.
type RegenerateOutput struct {
	Results []LibraryResult
	Errors  []string
}

// RegenerateWorkflow regenerates libraries in parallel, one activity per
// library. A library that fails does not stop the others; its error is
// reported in the output. Indexing runs only for libraries that generated.
func RegenerateWorkflow(ctx workflow.Context, input RegenerateInput) (*RegenerateOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
			// Defects in a dump do not go away on retry.
			NonRetryableErrorTypes: []string{ErrTypeInvalidPackage},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	libraries := input.Libraries
	if len(libraries) == 0 {
		if err := workflow.ExecuteActivity(ctx, ListLibrariesActivity).Get(ctx, &libraries); err != nil {
			return nil, err
		}
	}

	futures := make([]workflow.Future, len(libraries))
	for i, name := range libraries {
		futures[i] = workflow.ExecuteActivity(ctx, AssembleLibraryActivity, LibraryInput{Library: name, Prune: input.Prune})
	}

	out := &RegenerateOutput{}
	for i, f := range futures {
		var res LibraryResult
		if err := f.Get(ctx, &res); err != nil {
			out.Errors = append(out.Errors, libraries[i]+": "+err.Error())
			continue
		}
		out.Results = append(out.Results, res)
	}

	if input.Index {
		for i := range out.Results {
			res := &out.Results[i]
			if err := workflow.ExecuteActivity(ctx, IndexLibraryActivity, res.Library).Get(ctx, &res.Indexed); err != nil {
				out.Errors = append(out.Errors, res.Library+": index: "+err.Error())
			}
		}
	}
	return out, nil
}
