package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/bietkhonhungvandi212/pagevm/internal/addrspace"
	"github.com/bietkhonhungvandi212/pagevm/internal/machine"
	"github.com/bietkhonhungvandi212/pagevm/internal/vm"
	"gopkg.in/yaml.v3"
)

// Trace describes the address spaces to create and the accesses to replay.
type Trace struct {
	Spaces   []SpaceSpec `yaml:"spaces"`
	Accesses []Access    `yaml:"accesses"`
}

type SpaceSpec struct {
	Pages int `yaml:"pages"`
}

type Access struct {
	Space int  `yaml:"space"` // index into Spaces
	Page  int  `yaml:"page"`
	Write bool `yaml:"write"`
}

func defaultTrace() Trace {
	return Trace{
		Spaces: []SpaceSpec{{Pages: 6}, {Pages: 4}},
		Accesses: []Access{
			{0, 0, false}, {0, 1, true}, {1, 0, false}, {0, 2, false},
			{1, 3, true}, {0, 0, false}, {0, 4, true}, {1, 1, false},
			{0, 1, false}, {0, 5, false}, {1, 3, false}, {0, 2, true},
		},
	}
}

func loadTrace(path string) (Trace, error) {
	var tr Trace
	data, err := os.ReadFile(path)
	if err != nil {
		return tr, fmt.Errorf("read trace: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tr); err != nil {
		return tr, fmt.Errorf("decode trace %s: %w", path, err)
	}
	if len(tr.Spaces) == 0 {
		return tr, errors.New("trace declares no address spaces")
	}
	return tr, nil
}

// replay creates the spaces and performs each access the way the MMU would:
// fault when the page is not resident, then set the use bit and, for a
// write, bump the first byte of the page and set the dirty bit.
func replay(mgr *vm.Manager, mem *machine.Memory, tr Trace) ([]*addrspace.AddrSpace, error) {
	spaces := make([]*addrspace.AddrSpace, 0, len(tr.Spaces))
	for i, spec := range tr.Spaces {
		as, err := mgr.NewAddrSpace(spec.Pages, nil)
		if err != nil {
			return spaces, fmt.Errorf("space %d: %w", i, err)
		}
		spaces = append(spaces, as)
	}

	for step, acc := range tr.Accesses {
		if acc.Space < 0 || acc.Space >= len(spaces) {
			return spaces, fmt.Errorf("step %d: no space %d", step, acc.Space)
		}
		as := spaces[acc.Space]
		entry, err := as.Entry(acc.Page)
		if err != nil {
			return spaces, fmt.Errorf("step %d: %w", step, err)
		}

		if !entry.IsValid() {
			if err := mgr.HandlePageFault(vm.RunningSpace(as.ID()), acc.Page*machinePageSize); err != nil {
				return spaces, fmt.Errorf("step %d: %w", step, err)
			}
		}

		entry.SetUseFlag()
		if acc.Write {
			frame, err := mem.Frame(entry.PhysicalPage)
			if err != nil {
				return spaces, fmt.Errorf("step %d: %w", step, err)
			}
			frame[0]++
			entry.SetDirtyFlag()
		}
	}
	return spaces, nil
}
