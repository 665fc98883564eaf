//go:build tools
// +build tools

// Package tools declares tool dependencies for this module.
//
// These imports are not used at runtime. They keep go-based tools invoked
// through `go generate` (mockgen) pinned in go.mod, so a fresh checkout can
// regenerate the mocks.
package planning_poker

import (
	_ "go.uber.org/mock/mockgen"
)
