package cmd

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
)

// profilePrefix is set once profiling has started.
var profilePrefix string

// startProfiling starts CPU profiling when a prefix is given.
func startProfiling(prefix string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || profilePrefix != "" {
		return nil
	}

	cpuFile, err := os.Create(prefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		_ = cpuFile.Close()
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}
	profilePrefix = prefix

	// Profiling notes go to stderr; stdout may carry the MCP protocol
	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", prefix, prefix)
	return err
}

// stopProfiling stops CPU profiling and writes the heap profile.
func stopProfiling() error {
	if profilePrefix == "" {
		return nil
	}
	pprof.StopCPUProfile()

	memFile, err := os.Create(profilePrefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profilePrefix)
	return err
}
