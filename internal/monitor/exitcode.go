// Package monitor provides TUI rendering and exit-code logic for manifestgate.
package monitor

import "github.com/kubegov/manifestgate/internal/store"

// ExitCode returns a process exit code based on the worst finding in a snapshot.
//
//	0 = no violations
//	1 = warnings exist
//	2 = critical violations
//	3 = config or input errors
func ExitCode(snap store.Snapshot) int {
	if len(snap.Errors) > 0 {
		return 3
	}
	code := 0
	for i := range snap.Results {
		for _, v := range snap.Results[i].Decision.Violations {
			if v.Code == store.CodeInputError {
				return 3
			}
			switch v.Severity {
			case store.SeverityCritical:
				if code < 2 {
					code = 2
				}
			case store.SeverityWarn:
				if code < 1 {
					code = 1
				}
			}
		}
	}
	return code
}
