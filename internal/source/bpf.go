package source

import (
	"golang.org/x/net/bpf"

	"firestige.xyz/arpreflect/internal/core"
)

// ARPFilter returns a classic BPF program that accepts untagged ARP frames
// and rejects everything else, for use as a kernel-side capture filter.
func ARPFilter(snapLen uint32) ([]bpf.RawInstruction, error) {
	return bpf.Assemble([]bpf.Instruction{
		// EtherType at offset 12
		bpf.LoadAbsolute{Off: 12, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: core.EtherTypeARP, SkipFalse: 1},
		bpf.RetConstant{Val: snapLen},
		bpf.RetConstant{Val: 0},
	})
}
