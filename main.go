// main.go
//
// Minimal entry point that delegates CLI handling to the Cobra root command in cmd/root.go

package main

import (
	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/cmd"
)

func main() {
	cmd.Execute()
}
