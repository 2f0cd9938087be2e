// Package vm implements the execution core of the dialogue scripting
// engine: operand stack, locals with a persistent-flag overlay, call
// stack, the choice/choose state machine, and the text-pause protocol
// described by the binary image it runs.
package vm

import (
	"fmt"
	"math/rand"

	"github.com/chazu/dialogvm/pkg/bytecode"
	"github.com/chazu/dialogvm/pkg/image"
	"github.com/chazu/dialogvm/pkg/registry"
	"github.com/chazu/dialogvm/pkg/translation"
	"github.com/chazu/dialogvm/pkg/value"
)

// ChanceFunc decides whether a ChoiceAdd/ChooseAdd candidate with the
// given normalized probability in [0,1] is taken.
type ChanceFunc func(p float64) bool

// WeightedFunc samples an index into weights, proportional to their
// values. It must return an index in [0, len(weights)).
type WeightedFunc func(weights []float64) int

type frame struct {
	ip      int
	stack   []value.Value
	locals  []value.Value
	flagMap map[int]string
}

type choiceEntry struct {
	target int
	text   string
}

type chooseEntry struct {
	weight float64
	target int
}

// VM is one live execution of a Binary Image. It is single-threaded and
// cooperative: Update executes at most one instruction per call.
type VM struct {
	img      *image.Image
	registry registry.FunctionRegistry
	chance   ChanceFunc
	weighted WeightedFunc
	rng      *rand.Rand

	ip      int
	stack   []value.Value
	save    value.Value
	locals  []value.Value
	flagMap map[int]string

	callStack []frame

	choices       []choiceEntry
	chooseOptions []chooseEntry

	globals          map[string]value.Value
	flags            map[string]value.Value
	definitionsCache map[string]string

	currentSceneName string
	rngSeed          int64

	paused         bool
	inChoice       bool
	selectChoice   bool
	runningText    bool
	sceneCompleted bool
	currentText    string
}

// New constructs a paused VM bound to img and reg. A nil chance or
// weighted callback falls back to the defaults from spec §6: chance
// returns true when p>=1 or a uniform(0,1) draw is below p; weighted
// samples proportional to the supplied weights via uniform(0, sum).
func New(img *image.Image, reg registry.FunctionRegistry, chance ChanceFunc, weighted WeightedFunc) *VM {
	rng := rand.New(rand.NewSource(1))
	vm := &VM{
		img:              img,
		registry:         reg,
		rng:              rng,
		globals:          make(map[string]value.Value),
		flags:            make(map[string]value.Value),
		definitionsCache: make(map[string]string),
		flagMap:          make(map[int]string),
		paused:           true,
	}
	if chance != nil {
		vm.chance = chance
	} else {
		vm.chance = vm.defaultChance
	}
	if weighted != nil {
		vm.weighted = weighted
	} else {
		vm.weighted = vm.defaultWeighted
	}
	return vm
}

// SeedRNG reseeds the VM's owned RNG, for deterministic tests and
// reproducible playthroughs.
func (vm *VM) SeedRNG(seed int64) {
	vm.rngSeed = seed
	vm.rng = rand.New(rand.NewSource(seed))
}

func (vm *VM) defaultChance(p float64) bool {
	if p >= 1 {
		return true
	}
	return vm.rng.Float64() < p
}

func (vm *VM) defaultWeighted(weights []float64) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := vm.rng.Float64() * sum
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// RunScene locates scene by name, runs its flag preamble, positions ip
// at its entry, and unpauses so the next Update executes the entry.
func (vm *VM) RunScene(name string) error {
	entry, ok := vm.img.SceneByName(name)
	if !ok {
		return newErr(LookupError, "RunScene", 0, fmt.Errorf("unknown scene %q", name))
	}

	vm.stack = vm.stack[:0]
	vm.locals = nil
	vm.flagMap = make(map[int]string)
	vm.callStack = nil
	vm.choices = nil
	vm.chooseOptions = nil
	vm.inChoice = false
	vm.selectChoice = false
	vm.runningText = false
	vm.sceneCompleted = false
	vm.currentText = ""
	vm.currentSceneName = name

	if err := vm.runPreamble(entry, 0); err != nil {
		return err
	}
	vm.ip = int(entry.EntryPoint())
	vm.paused = false
	return nil
}

// Update decodes and executes exactly one instruction at ip. It is a
// no-op if the VM is currently paused.
func (vm *VM) Update() error {
	if vm.paused {
		return nil
	}
	_, err := vm.execOne(false)
	return err
}

// Resume clears running_text and unpauses, unless select_choice is
// also set (in which case pausedness is left untouched).
func (vm *VM) Resume() {
	vm.runningText = false
	if !vm.selectChoice {
		vm.paused = false
	}
}

// ChooseChoice selects choice i from the accumulated choice list,
// jumping ip to its target and returning to normal execution.
func (vm *VM) ChooseChoice(i int) error {
	if !vm.selectChoice {
		return newErr(StateError, "ChooseChoice", vm.ip, fmt.Errorf("not awaiting a choice selection"))
	}
	if i < 0 || i >= len(vm.choices) {
		return newErr(BoundsError, "ChooseChoice", vm.ip, fmt.Errorf("choice index %d out of range (%d choices)", i, len(vm.choices)))
	}
	vm.ip = vm.choices[i].target
	vm.selectChoice = false
	vm.inChoice = false
	vm.choices = nil
	vm.paused = false
	return nil
}

// GetFlag returns the current value of a persistent flag, or Undefined
// if it was never set.
func (vm *VM) GetFlag(name string) value.Value {
	return vm.flags[name]
}

// SetFlag directly assigns a persistent flag, overriding any existing
// value (bypassing first-write-wins, which only applies to preambles).
func (vm *VM) SetFlag(name string, v value.Value) {
	vm.flags[name] = v
}

// LoadTranslationFile replaces the image's translation table from a
// translation-format text file and invalidates the definitions cache.
func (vm *VM) LoadTranslationFile(path string) error {
	lines, err := translation.Load(path)
	if err != nil {
		return newErr(LoadError, "LoadTranslationFile", vm.ip, err)
	}
	vm.img.ReplaceTranslations(lines)
	vm.definitionsCache = make(map[string]string)
	return nil
}

// Observables.
func (vm *VM) CurrentText() string      { return vm.currentText }
func (vm *VM) Choices() []string {
	texts := make([]string, len(vm.choices))
	for i, c := range vm.choices {
		texts[i] = c.text
	}
	return texts
}
func (vm *VM) Paused() bool          { return vm.paused }
func (vm *VM) RunningText() bool     { return vm.runningText }
func (vm *VM) SelectChoice() bool    { return vm.selectChoice }
func (vm *VM) SceneCompleted() bool  { return vm.sceneCompleted }
func (vm *VM) CurrentScene() string  { return vm.currentSceneName }
func (vm *VM) IP() int               { return vm.ip }
func (vm *VM) StackDepth() int       { return len(vm.stack) }

// DisassembleAt renders the instruction at ip for debug tooling; it is
// never consulted by the dispatch loop itself.
func (vm *VM) DisassembleAt(ip int) string {
	return bytecode.DisassembleInstruction(vm.img.Instructions, ip, vm.img)
}
