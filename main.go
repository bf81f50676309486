// main is the entry point of the ceflow CLI.
package main

import (
	"github.com/huangsam/ceflow/cmd"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/internal/iocache"
)

func main() {
	cmd.SetStoreManager(iocache.Manager)

	err := cmd.Execute()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Failed to stop profiling", perr)
	}
	// LogFatal exits without running defers
	iocache.CloseStore()
	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}
