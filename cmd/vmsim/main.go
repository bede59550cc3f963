package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/bietkhonhungvandi212/pagevm/internal/addrspace"
	"github.com/bietkhonhungvandi212/pagevm/internal/machine"
	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
	"github.com/bietkhonhungvandi212/pagevm/internal/vm"
	"github.com/davecgh/go-spew/spew"
)

const machinePageSize = util.PageSize

func main() {
	configPath := flag.String("config", "", "YAML options file")
	tracePath := flag.String("trace", "", "YAML access trace (built-in trace when empty)")
	flag.Parse()

	if err := run(*configPath, *tracePath); err != nil {
		fmt.Fprintln(os.Stderr, "vmsim:", err)
		os.Exit(1)
	}
}

func run(configPath, tracePath string) (err error) {
	opts := util.DefaultOptions()
	if configPath != "" {
		if opts, err = util.LoadOptions(configPath); err != nil {
			return err
		}
	}
	logger := util.InitLogger(os.Stderr, opts.LogLevel)

	tr := defaultTrace()
	if tracePath != "" {
		if tr, err = loadTrace(tracePath); err != nil {
			return err
		}
	}

	mem := machine.NewMemory(opts.PhysPages)
	mgr, err := vm.New(opts, mem, machine.NewFrameAllocator(opts.PhysPages), addrspace.NewRegistry())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, mgr.Destroy())
	}()

	spaces, err := replay(mgr, mem, tr)
	logger.Info("trace replayed", "accesses", len(tr.Accesses), "hand", mgr.Hand())

	spew.Fdump(os.Stdout, mgr.Stats())
	spew.Fdump(os.Stdout, mgr.Snapshot())

	for _, as := range spaces {
		err = errors.Join(err, mgr.ReleasePages(as.ID()))
	}
	return err
}
