package cli

import (
	"errors"
	"fmt"
)

// maxFindingsExit caps finding-count exit codes below the range shells
// reserve for signals and exec failures.
const maxFindingsExit = 125

// findingsError is returned by scan --ci when the finding count exceeds the
// budget. The count becomes the process exit code so CI pipelines can read
// it without parsing output.
type findingsError struct {
	count  int
	budget int
}

func (e *findingsError) Error() string {
	return fmt.Sprintf("%d findings exceed the CI budget of %d", e.count, e.budget)
}

func (e *findingsError) exitCode() int {
	if e.count > maxFindingsExit {
		return maxFindingsExit
	}
	return e.count
}

// ExitCode maps an Execute error to a process exit code: 0 on nil, the
// capped finding count for CI budget violations, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var fe *findingsError
	if errors.As(err, &fe) {
		return fe.exitCode()
	}
	return 1
}
