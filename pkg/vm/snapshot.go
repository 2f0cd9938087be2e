package vm

import (
	"fmt"

	"github.com/chazu/dialogvm/pkg/image"
	"github.com/chazu/dialogvm/pkg/registry"
	"github.com/chazu/dialogvm/pkg/value"
)

// Snapshot is the complete, serializable state of a paused VM: enough
// to resume an equivalent VM bound to the same Binary Image exactly
// where this one left off. A snapshot is only ever taken at a
// suspension point (Paused() == true).
type Snapshot struct {
	SceneName string

	IP     int
	Stack  []value.Value
	Save   value.Value
	Locals []value.Value

	FlagSlots []FlagBinding
	CallStack []FrameSnapshot

	Choices       []ChoiceSnapshot
	ChooseOptions []ChooseSnapshot

	Globals map[string]value.Value
	Flags   map[string]value.Value

	Paused         bool
	InChoice       bool
	SelectChoice   bool
	RunningText    bool
	SceneCompleted bool
	CurrentText    string

	RNGSeed int64
}

// FlagBinding records one entry of the locals flag overlay.
type FlagBinding struct {
	Slot int
	Name string
}

// FrameSnapshot is one saved call-stack frame.
type FrameSnapshot struct {
	IP        int
	Stack     []value.Value
	Locals    []value.Value
	FlagSlots []FlagBinding
}

// ChoiceSnapshot is one accumulated, user-selectable branch.
type ChoiceSnapshot struct {
	Target int
	Text   string
}

// ChooseSnapshot is one accumulated, weighted-random branch.
type ChooseSnapshot struct {
	Weight float64
	Target int
}

// Snapshot captures the VM's current state. Saving mid-choice (Save
// peeks, it never pops) round-trips Choices()/SelectChoice exactly.
func (vm *VM) Snapshot() Snapshot {
	return Snapshot{
		SceneName:      vm.currentSceneName,
		IP:             vm.ip,
		Stack:          append([]value.Value(nil), vm.stack...),
		Save:           vm.save,
		Locals:         append([]value.Value(nil), vm.locals...),
		FlagSlots:      flagMapToBindings(vm.flagMap),
		CallStack:      framesToSnapshots(vm.callStack),
		Choices:        choicesToSnapshots(vm.choices),
		ChooseOptions:  chooseOptionsToSnapshots(vm.chooseOptions),
		Globals:        copyValueMap(vm.globals),
		Flags:          copyValueMap(vm.flags),
		Paused:         vm.paused,
		InChoice:       vm.inChoice,
		SelectChoice:   vm.selectChoice,
		RunningText:    vm.runningText,
		SceneCompleted: vm.sceneCompleted,
		CurrentText:    vm.currentText,
		RNGSeed:        vm.rngSeed,
	}
}

// Restore replaces the VM's execution state with snap's, keeping the
// VM bound to its existing image and registry. The image should be the
// one the snapshot was taken against; callers are responsible for that
// (the snapshot does not carry the image itself).
func (vm *VM) Restore(snap Snapshot) error {
	vm.currentSceneName = snap.SceneName
	vm.ip = snap.IP
	vm.stack = append([]value.Value(nil), snap.Stack...)
	vm.save = snap.Save
	vm.locals = append([]value.Value(nil), snap.Locals...)
	vm.flagMap = bindingsToFlagMap(snap.FlagSlots)
	vm.callStack = snapshotsToFrames(snap.CallStack)
	vm.choices = snapshotsToChoices(snap.Choices)
	vm.chooseOptions = snapshotsToChooseOptions(snap.ChooseOptions)
	vm.globals = copyValueMap(snap.Globals)
	vm.flags = copyValueMap(snap.Flags)
	vm.paused = snap.Paused
	vm.inChoice = snap.InChoice
	vm.selectChoice = snap.SelectChoice
	vm.runningText = snap.RunningText
	vm.sceneCompleted = snap.SceneCompleted
	vm.currentText = snap.CurrentText
	vm.SeedRNG(snap.RNGSeed)
	if vm.globals == nil {
		vm.globals = make(map[string]value.Value)
	}
	if vm.flags == nil {
		vm.flags = make(map[string]value.Value)
	}
	return nil
}

// Resumed constructs a new VM bound to img and reg, restored from snap.
func Resumed(img *image.Image, reg registry.FunctionRegistry, chance ChanceFunc, weighted WeightedFunc, snap Snapshot) (*VM, error) {
	vm := New(img, reg, chance, weighted)
	if err := vm.Restore(snap); err != nil {
		return nil, fmt.Errorf("restoring snapshot: %w", err)
	}
	return vm, nil
}

func flagMapToBindings(m map[int]string) []FlagBinding {
	out := make([]FlagBinding, 0, len(m))
	for slot, name := range m {
		out = append(out, FlagBinding{Slot: slot, Name: name})
	}
	return out
}

func bindingsToFlagMap(bindings []FlagBinding) map[int]string {
	m := make(map[int]string, len(bindings))
	for _, b := range bindings {
		m[b.Slot] = b.Name
	}
	return m
}

func framesToSnapshots(frames []frame) []FrameSnapshot {
	out := make([]FrameSnapshot, len(frames))
	for i, f := range frames {
		out[i] = FrameSnapshot{
			IP:        f.ip,
			Stack:     append([]value.Value(nil), f.stack...),
			Locals:    append([]value.Value(nil), f.locals...),
			FlagSlots: flagMapToBindings(f.flagMap),
		}
	}
	return out
}

func snapshotsToFrames(snaps []FrameSnapshot) []frame {
	out := make([]frame, len(snaps))
	for i, s := range snaps {
		out[i] = frame{
			ip:      s.IP,
			stack:   append([]value.Value(nil), s.Stack...),
			locals:  append([]value.Value(nil), s.Locals...),
			flagMap: bindingsToFlagMap(s.FlagSlots),
		}
	}
	return out
}

func choicesToSnapshots(choices []choiceEntry) []ChoiceSnapshot {
	out := make([]ChoiceSnapshot, len(choices))
	for i, c := range choices {
		out[i] = ChoiceSnapshot{Target: c.target, Text: c.text}
	}
	return out
}

func snapshotsToChoices(snaps []ChoiceSnapshot) []choiceEntry {
	out := make([]choiceEntry, len(snaps))
	for i, s := range snaps {
		out[i] = choiceEntry{target: s.Target, text: s.Text}
	}
	return out
}

func chooseOptionsToSnapshots(opts []chooseEntry) []ChooseSnapshot {
	out := make([]ChooseSnapshot, len(opts))
	for i, o := range opts {
		out[i] = ChooseSnapshot{Weight: o.weight, Target: o.target}
	}
	return out
}

func snapshotsToChooseOptions(snaps []ChooseSnapshot) []chooseEntry {
	out := make([]chooseEntry, len(snaps))
	for i, s := range snaps {
		out[i] = chooseEntry{weight: s.Weight, target: s.Target}
	}
	return out
}

func copyValueMap(m map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
