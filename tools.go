//go:build tools
// +build tools

// Package tools pins mockgen, run through go generate on the repository
// interfaces, as a module dependency.
package housing_chat

import (
	_ "go.uber.org/mock/mockgen"
)
