// Command dialogvm is a console sample host for the dialogue VM: it
// loads a compiled image and an optional translation file, drives the
// VM's Update/Resume/ChooseChoice protocol from a terminal, and can
// persist or resume a paused game via a save-slot database.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/dialogvm/config"
	"github.com/chazu/dialogvm/pkg/bridge"
	"github.com/chazu/dialogvm/pkg/image"
	"github.com/chazu/dialogvm/pkg/registry"
	"github.com/chazu/dialogvm/pkg/store"
	"github.com/chazu/dialogvm/pkg/vm"
)

func main() {
	configPath := flag.String("config", "dialogvm.toml", "path to the host configuration file")
	scene := flag.String("scene", "start", "scene to run (ignored with -save)")
	saveSlot := flag.String("save", "", "resume from this save slot instead of running -scene")
	listSaves := flag.Bool("list-saves", false, "list save slots in the configured database and exit")
	debug := flag.Bool("debug", false, "disassemble each instruction to stderr before executing it")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dialogvm [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a compiled dialogue image from the terminal.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dialogvm: %v\n", err)
		os.Exit(1)
	}

	saves, err := store.Open(cfg.Save.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dialogvm: opening save database: %v\n", err)
		os.Exit(1)
	}
	defer saves.Close()

	if *listSaves {
		slots, err := saves.ListSlots()
		if err != nil {
			fmt.Fprintf(os.Stderr, "dialogvm: %v\n", err)
			os.Exit(1)
		}
		for _, s := range slots {
			fmt.Println(s)
		}
		return
	}

	data, err := os.ReadFile(cfg.Image.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dialogvm: reading image: %v\n", err)
		os.Exit(1)
	}
	img, err := image.Load(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dialogvm: loading image: %v\n", err)
		os.Exit(1)
	}

	reg, closeReg, err := buildRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dialogvm: %v\n", err)
		os.Exit(1)
	}
	if closeReg != nil {
		defer closeReg()
	}

	seed := cfg.RNG.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		fmt.Fprintf(os.Stderr, "dialogvm: using derived RNG seed %d\n", seed)
	}

	dialogue := vm.New(img, reg, nil, nil)
	dialogue.SeedRNG(seed)

	if cfg.Translation.Path != "" {
		if err := dialogue.LoadTranslationFile(cfg.Translation.Path); err != nil {
			fmt.Fprintf(os.Stderr, "dialogvm: loading translation file: %v\n", err)
			os.Exit(1)
		}
	}

	if *saveSlot != "" {
		snap, err := saves.Load(*saveSlot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dialogvm: loading save %q: %v\n", *saveSlot, err)
			os.Exit(1)
		}
		if err := dialogue.Restore(snap); err != nil {
			fmt.Fprintf(os.Stderr, "dialogvm: restoring save %q: %v\n", *saveSlot, err)
			os.Exit(1)
		}
	} else {
		if err := dialogue.RunScene(*scene); err != nil {
			fmt.Fprintf(os.Stderr, "dialogvm: %v\n", err)
			os.Exit(1)
		}
	}

	slot := *saveSlot
	if slot == "" {
		slot = cfg.Save.Slot
	}
	runLoop(dialogue, saves, slot, *debug)
}

// buildRegistry constructs the host-function registry the VM calls
// through: a remote bridge when the config names one, otherwise an
// empty in-process map registry.
func buildRegistry(cfg *config.Config) (registry.FunctionRegistry, func(), error) {
	if cfg.Bridge.Address != "" {
		remote, err := bridge.Dial(cfg.Bridge.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to host-function bridge: %w", err)
		}
		return remote, func() { remote.Close() }, nil
	}
	return registry.NewMapRegistry(), nil, nil
}

// runLoop drives Update/Resume/ChooseChoice from the terminal until the
// scene completes, persisting a save on each suspension so the player
// can quit at any prompt.
func runLoop(dialogue *vm.VM, saves *store.Store, slot string, debug bool) {
	stdin := bufio.NewScanner(os.Stdin)

	for !dialogue.SceneCompleted() {
		if debug {
			fmt.Fprintln(os.Stderr, dialogue.DisassembleAt(dialogue.IP()))
		}
		if err := dialogue.Update(); err != nil {
			fmt.Fprintf(os.Stderr, "dialogvm: %v\n", err)
			os.Exit(1)
		}

		if dialogue.Paused() && !dialogue.SceneCompleted() {
			if err := saves.Save(slot, dialogue.Snapshot(), time.Now().Unix()); err != nil {
				fmt.Fprintf(os.Stderr, "dialogvm: autosave failed: %v\n", err)
			}
		}

		switch {
		case dialogue.RunningText():
			fmt.Println(dialogue.CurrentText())
			fmt.Print("(press Enter to continue) ")
			stdin.Scan()
			dialogue.Resume()

		case dialogue.SelectChoice():
			choices := dialogue.Choices()
			for i, c := range choices {
				fmt.Printf("  %d) %s\n", i+1, c)
			}
			fmt.Print("> ")
			if !stdin.Scan() {
				return
			}
			i, err := strconv.Atoi(strings.TrimSpace(stdin.Text()))
			if err != nil || i < 1 || i > len(choices) {
				fmt.Fprintln(os.Stderr, "dialogvm: enter a number from the list")
				continue
			}
			if err := dialogue.ChooseChoice(i - 1); err != nil {
				fmt.Fprintf(os.Stderr, "dialogvm: %v\n", err)
				os.Exit(1)
			}
		}
	}

	fmt.Println("-- scene complete --")
	if err := saves.Delete(slot); err != nil {
		fmt.Fprintf(os.Stderr, "dialogvm: clearing save slot: %v\n", err)
	}
}
