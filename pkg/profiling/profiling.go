// Package profiling adds pprof flags to a cobra command tree.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
)

// CobraProfiler writes CPU and heap profiles around a command run.
type CobraProfiler struct {
	cpuProfilePath string
	memProfilePath string
	cpuFile        *os.File
}

// NewCobraProfiler creates a new profiler for Cobra integration.
func NewCobraProfiler() *CobraProfiler {
	return &CobraProfiler{}
}

// Attach adds the profiling flags to cmd and hooks them into its
// persistent pre and post run. Existing hooks are chained.
func (p *CobraProfiler) Attach(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&p.cpuProfilePath, "cpu-profile", "", "Write a CPU profile to file")
	flags.StringVar(&p.memProfilePath, "mem-profile", "", "Write a heap profile to file on exit")
	_ = flags.MarkHidden("cpu-profile")
	_ = flags.MarkHidden("mem-profile")

	pre, post := cmd.PersistentPreRunE, cmd.PersistentPostRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := p.Start(); err != nil {
			return err
		}
		if pre != nil {
			return pre(c, args)
		}
		return nil
	}
	cmd.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		if post != nil {
			if err := post(c, args); err != nil {
				_ = p.Stop()
				return err
			}
		}
		return p.Stop()
	}
}

// Start begins CPU profiling when a path was given.
func (p *CobraProfiler) Start() error {
	if p.cpuProfilePath == "" || p.cpuFile != nil {
		return nil
	}
	f, err := os.Create(p.cpuProfilePath)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	p.cpuFile = f
	return nil
}

// Stop finishes the CPU profile and writes the heap profile.
func (p *CobraProfiler) Stop() error {
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			return fmt.Errorf("could not write CPU profile: %w", err)
		}
		p.cpuFile = nil
	}

	if p.memProfilePath == "" {
		return nil
	}
	f, err := os.Create(p.memProfilePath)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	return nil
}
