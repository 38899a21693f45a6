package plan

import "fmt"

// CycleDetectedError is returned when the job dependency graph contains a
// cycle; per §4.2 step 3, planning refuses to proceed in that case.
type CycleDetectedError struct {
	Chain []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("plan: dependency cycle detected: %v", e.Chain)
}

// UnresolvedInputError is returned when a job's edge cannot be resolved to
// either an upstream job's artifact or a root input.
type UnresolvedInputError struct {
	JobAliasPath string
	Reference    string
}

func (e *UnresolvedInputError) Error() string {
	return fmt.Sprintf("plan: job %q has unresolved input reference %q", e.JobAliasPath, e.Reference)
}

// InvalidScopeError is returned for a Scope whose Layer argument is out of
// range for the blueprint's full layer count.
type InvalidScopeError struct {
	Reason string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("plan: invalid scope: %s", e.Reason)
}
