package bcodec

import (
	"github.com/samber/lo"
	"github.com/thanhnguyen2187/bindef/bstruct/bblock"
)

// SetPointers assigns a location to every pointer-based field of the tree
// below root. Fields are laid out breadth first after the bytes the
// non-pointer fields span, each aligned to its ALIGN. Fields whose
// pointer is a fixed integer keep it and move the frontier there.
func SetPointers(root *bblock.Block, opts WriteOptions) error {
	logger := discardLogger(opts.Logger)
	w := &writer{rootOffset: opts.RootOffset, logger: logger, queue: newSlotQueue()}
	start := opts.RootOffset + opts.Offset
	end, err := w.root(root, start)
	if err != nil {
		return err
	}
	frontier := lo.Max([]int{end, w.extent})
	seen := map[slot]bool{}
	for {
		s, ok := w.queue.Pop()
		if !ok {
			return nil
		}
		if seen[s] {
			continue
		}
		seen[s] = true

		desc := s.host.ChildDescriptor(s.index)
		if n, fixed := desc.Pointer().IntValue(); fixed {
			frontier = opts.RootOffset + n
		} else {
			frontier = w.align(frontier, desc.Align())
			if err := s.host.SetPointer(s.index, frontier-opts.RootOffset); err != nil {
				return wrapField(opSerialize, err, Level{desc.Name(), s.index, frontier, desc.Type().Name()})
			}
			logger.Debug("placed pointer", "field", desc.Name(), "pointer", frontier-opts.RootOffset)
		}
		// The override from SetPointer may have replaced the descriptor.
		desc = s.host.ChildDescriptor(s.index)
		next, err := w.place(s.host, s.index, desc, s.host.At(s.index), frontier)
		if err != nil {
			return wrapField(opSerialize, err, Level{desc.Name(), s.index, frontier, desc.Type().Name()})
		}
		frontier = lo.Max([]int{next, frontier})
	}
}
