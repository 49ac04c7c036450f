package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"
	"time"
)

// setupProfiling writes CPU and heap profiles when KVIEW_PROFILE=startup.
// The returned stop function is safe to call more than once.
func setupProfiling() func() {
	mode := strings.ToLower(os.Getenv("KVIEW_PROFILE"))
	if mode != "startup" {
		return func() {}
	}
	ts := time.Now().UTC().Format("20060102-150405")
	cpuPath := fmt.Sprintf("kview-startup-%s.cpu.pprof", ts)
	cpuFile, err := os.Create(cpuPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to create CPU profile %s: %v\n", cpuPath, err)
		return func() {}
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to start CPU profile: %v\n", err)
		cpuFile.Close()
		return func() {}
	}
	fmt.Fprintf(os.Stderr, "KVIEW_PROFILE=startup: writing CPU profile to %s\n", cpuPath)
	memPath := fmt.Sprintf("kview-startup-%s.mem.pprof", ts)
	var once sync.Once
	return func() {
		once.Do(func() {
			pprof.StopCPUProfile()
			cpuFile.Close()
			memFile, err := os.Create(memPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warn: unable to create heap profile %s: %v\n", memPath, err)
				return
			}
			defer memFile.Close()
			runtime.GC()
			if err := pprof.WriteHeapProfile(memFile); err != nil {
				fmt.Fprintf(os.Stderr, "warn: unable to write heap profile: %v\n", err)
			}
		})
	}
}
