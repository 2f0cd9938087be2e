// Package image implements the dialogue VM's on-disk program format: a
// compiled "DNX" binary containing the instruction stream, string and
// translation tables, and the scene/function/definition indexes that
// point into them.
package image

import "fmt"

// StringRef is a tagged index into either the string table (high bit
// clear) or the translation table (high bit set, low 31 bits).
type StringRef uint32

const translationBit uint32 = 1 << 31

// IsTranslation reports whether this reference points into the
// translation table rather than the internal string table.
func (r StringRef) IsTranslation() bool {
	return uint32(r)&translationBit != 0
}

// Index returns the table index this reference points at.
func (r StringRef) Index() uint32 {
	return uint32(r) &^ translationBit
}

// Definition is a named, possibly-interpolated string resolved from
// either table, with an optional bytecode offset supplying
// interpolation arguments.
type Definition struct {
	SymbolID       uint32
	StringRef      StringRef
	BytecodeOffset int32 // -1 if absent
}

// HasBytecode reports whether this definition carries interpolation
// bytecode.
func (d Definition) HasBytecode() bool { return d.BytecodeOffset >= 0 }

// Entry is the offset table for a scene or function: Offsets[0] is the
// entry point; subsequent offsets come in (value-expr, name-expr) pairs
// for the flag preamble.
type Entry struct {
	SymbolID uint32
	Offsets  []int32
}

// FlagPairs returns the number of (value, name) flag-preamble pairs
// following the entry offset.
func (e Entry) FlagPairs() int {
	if len(e.Offsets) <= 1 {
		return 0
	}
	return (len(e.Offsets) - 1) / 2
}

// EntryPoint returns the byte offset execution begins at, after the
// flag preamble has run.
func (e Entry) EntryPoint() int32 { return e.Offsets[0] }

// Image is a fully parsed, deserialized dialogue program. It is
// immutable after Load except for ReplaceTranslations, which swaps the
// translation table (and nothing else).
type Image struct {
	Version byte
	Flags   byte

	Instructions []byte

	StringTable      []string
	TranslationTable []string

	TranslationLoaded bool

	Scenes      map[uint32]Entry
	Functions   map[uint32]Entry
	Definitions map[uint32]Definition

	ExternalFunctions []uint32
}

const (
	FlagCompressed          byte = 1 << 0
	FlagInternalTranslation byte = 1 << 1
)

// Resolve resolves a StringRef to its underlying text. It never fails
// for a valid in-range ref; out-of-range refs return an error.
func (img *Image) Resolve(ref StringRef) (string, error) {
	if ref.IsTranslation() {
		idx := ref.Index()
		if int(idx) >= len(img.TranslationTable) {
			return "", fmt.Errorf("translation table index %d out of range (%d entries)", idx, len(img.TranslationTable))
		}
		return img.TranslationTable[idx], nil
	}
	idx := ref.Index()
	if int(idx) >= len(img.StringTable) {
		return "", fmt.Errorf("string table index %d out of range (%d entries)", idx, len(img.StringTable))
	}
	return img.StringTable[idx], nil
}

// StringAt implements bytecode.SymbolResolver for the disassembler,
// resolving an internal string-table index.
func (img *Image) StringAt(idx int32) (string, bool) {
	if idx < 0 || int(idx) >= len(img.StringTable) {
		return "", false
	}
	return img.StringTable[idx], true
}

// SymbolName returns the string-table text for a symbol id, if the
// compiler recorded one at that index.
func (img *Image) SymbolName(id uint32) (string, bool) {
	if int(id) >= len(img.StringTable) {
		return "", false
	}
	return img.StringTable[id], true
}

// SceneByName finds a scene whose symbol name (string_table[symbol_id])
// matches name.
func (img *Image) SceneByName(name string) (Entry, bool) {
	for id, e := range img.Scenes {
		if n, ok := img.SymbolName(id); ok && n == name {
			return e, true
		}
	}
	return Entry{}, false
}

// FunctionByName finds a function by symbol name, mirroring SceneByName.
func (img *Image) FunctionByName(name string) (Entry, bool) {
	for id, e := range img.Functions {
		if n, ok := img.SymbolName(id); ok && n == name {
			return e, true
		}
	}
	return Entry{}, false
}

// DefinitionByName finds a definition by symbol name.
func (img *Image) DefinitionByName(name string) (Definition, bool) {
	for id, d := range img.Definitions {
		if n, ok := img.SymbolName(id); ok && n == name {
			return d, true
		}
	}
	return Definition{}, false
}

// ReplaceTranslations swaps the translation table, e.g. after
// LoadTranslationFile. Callers are responsible for invalidating any
// definition cache that depends on the old table (see vm.VM).
func (img *Image) ReplaceTranslations(lines []string) {
	img.TranslationTable = lines
	img.TranslationLoaded = true
}
