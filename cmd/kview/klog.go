package main

import (
	"flag"
	"strconv"
	"sync"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"
)

var (
	klogOnce  sync.Once
	klogFlags *flag.FlagSet
)

// initKlog routes client-go logging through logger at the given verbosity.
func initKlog(logger logr.Logger, verbosity int) error {
	klogOnce.Do(func() {
		klogFlags = flag.NewFlagSet("klog", flag.ContinueOnError)
		klog.InitFlags(klogFlags)
	})
	if err := klogFlags.Set("v", strconv.Itoa(verbosity)); err != nil {
		return err
	}
	klog.SetLogger(logger.WithName("client-go"))
	return nil
}
