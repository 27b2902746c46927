package harness

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/baboon/internal/action"
)

// scriptedWorker is the owner registered for a scenario Worker.
type scriptedWorker struct {
	def Worker
	log *callLog

	mu     sync.Mutex
	guards map[string]bool
}

func newScriptedWorker(def Worker, log *callLog) *scriptedWorker {
	guards := make(map[string]bool, len(def.Guards))
	for name, v := range def.Guards {
		guards[name] = v
	}
	return &scriptedWorker{def: def, log: log, guards: guards}
}

func (w *scriptedWorker) declare(cat *action.Catalog) {
	o := cat.Instance(w)
	for _, name := range w.def.Tasks {
		o.Task(name, w.member(name))
	}
	for _, name := range w.def.Events {
		o.EventHandler(name, w.member(name))
	}
	for _, name := range sortedGuards(w.def.Guards) {
		o.GuardProvider(name, w.guard(name))
	}
}

func (w *scriptedWorker) member(name string) func() error {
	call := w.def.Name + "." + name
	fails := slices.Contains(w.def.Fail, name)
	panics := slices.Contains(w.def.Panic, name)
	return func() error {
		w.log.add(call)
		if panics {
			panic(call + " panicked")
		}
		if fails {
			return fmt.Errorf("%s failed", call)
		}
		return nil
	}
}

func (w *scriptedWorker) guard(name string) func() bool {
	toggles := slices.Contains(w.def.Toggle, name)
	return func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		v := w.guards[name]
		if toggles {
			w.guards[name] = !v
		}
		return v
	}
}

func sortedGuards(m map[string]bool) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
