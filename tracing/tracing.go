// Package tracing observes forkers and physical memories through hooks.
package tracing

import (
	"github.com/sarchlab/vmfork/mem/vm/cow"
	"github.com/sarchlab/vmfork/sim"
)

// Attach registers the hook with the forker and, if it can be hooked, with
// the physical memory of the forker.
func Attach(f *cow.Forker, hook sim.Hook) {
	f.AcceptHook(hook)

	if mem, ok := f.Memory().(sim.Hookable); ok {
		mem.AcceptHook(hook)
	}
}

func domainName(ctx sim.HookCtx) string {
	named, ok := ctx.Domain.(sim.Named)
	if !ok {
		return ""
	}

	return named.Name()
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
