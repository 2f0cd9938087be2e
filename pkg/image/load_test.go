package image

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/chazu/dialogvm/pkg/bytecode"
)

// builder assembles a synthetic .dnx byte stream for tests, mirroring the
// section order Load expects.
type builder struct {
	buf bytes.Buffer
}

func (b *builder) u16(v uint16) { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *builder) u32(v uint32) { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *builder) i32(v int32)  { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *builder) cstr(s string) {
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
}

func (b *builder) entries(entries map[uint32][]int32) {
	b.u32(uint32(len(entries)))
	for _, id := range sortedKeys(entries) {
		offsets := entries[id]
		b.u32(id)
		b.u16(uint16(len(offsets)))
		for _, off := range offsets {
			b.i32(off)
		}
	}
}

func sortedKeys(m map[uint32][]int32) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// buildBody writes the uncompressed body section (everything after the
// flags byte's size field) for a synthetic image with one scene, one
// function with two flag-preamble pairs, three internal strings, two
// translation strings, one definition of each StringRef form, and no
// external functions.
func buildBody(t *testing.T) []byte {
	t.Helper()
	var b builder

	code := []byte{}
	code = bytecode.EncodeNone(code, bytecode.OpExit)

	b.entries(map[uint32][]int32{0: {0}})             // scenes: symbol 0 -> entry at 0
	b.entries(map[uint32][]int32{1: {0, 4, 8, 12, 16}}) // functions: symbol 1, entry + 2 flag pairs

	b.u32(2) // definition count
	b.u32(2)                                 // symbol id 2
	b.u32(uint32(StringRef(0)))               // internal string ref, index 0
	b.i32(-1)                                 // no bytecode
	b.u32(3)                                  // symbol id 3
	b.u32(uint32(StringRef(translationBit|1))) // translation string ref, index 1
	b.i32(-1)

	b.u32(uint32(len(code)))
	b.buf.Write(code)

	b.u32(3)
	b.cstr("hello")
	b.cstr("world")
	b.cstr("scene-one")

	b.u32(2)
	b.cstr("bonjour")
	b.cstr("monde")

	b.u32(0) // no external functions

	return b.buf.Bytes()
}

func wrapUncompressed(body []byte) []byte {
	var out bytes.Buffer
	out.Write(Magic[:])
	out.WriteByte(SupportedVersion)
	out.WriteByte(0) // flags: no compression, no internal translation
	binary.Write(&out, binary.LittleEndian, uint32(len(body)))
	out.Write(body)
	return out.Bytes()
}

func wrapCompressed(body []byte, t *testing.T) []byte {
	t.Helper()
	var zbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	if _, err := zw.Write(body); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	out.Write(Magic[:])
	out.WriteByte(SupportedVersion)
	out.WriteByte(FlagCompressed)
	binary.Write(&out, binary.LittleEndian, uint32(len(body)))
	binary.Write(&out, binary.LittleEndian, uint32(zbuf.Len()))
	out.Write(zbuf.Bytes())
	return out.Bytes()
}

func TestLoadUncompressedRoundTrip(t *testing.T) {
	body := buildBody(t)
	data := wrapUncompressed(body)

	img, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(img.Scenes) != 1 {
		t.Fatalf("scenes = %d, want 1", len(img.Scenes))
	}
	scene, ok := img.Scenes[0]
	if !ok || scene.EntryPoint() != 0 {
		t.Fatalf("scene 0 = %+v, ok=%v", scene, ok)
	}

	fn, ok := img.Functions[1]
	if !ok {
		t.Fatal("function 1 missing")
	}
	if fn.FlagPairs() != 2 {
		t.Fatalf("flag pairs = %d, want 2", fn.FlagPairs())
	}

	if len(img.StringTable) != 3 || img.StringTable[0] != "hello" {
		t.Fatalf("string table = %v", img.StringTable)
	}
	if len(img.TranslationTable) != 2 || img.TranslationTable[1] != "monde" {
		t.Fatalf("translation table = %v", img.TranslationTable)
	}

	def, ok := img.Definitions[2]
	if !ok || def.StringRef.IsTranslation() {
		t.Fatalf("definition 2 = %+v", def)
	}
	s, err := img.Resolve(def.StringRef)
	if err != nil || s != "hello" {
		t.Fatalf("resolve definition 2: %v %q", err, s)
	}

	def3, ok := img.Definitions[3]
	if !ok || !def3.StringRef.IsTranslation() {
		t.Fatalf("definition 3 = %+v", def3)
	}
	s, err = img.Resolve(def3.StringRef)
	if err != nil || s != "monde" {
		t.Fatalf("resolve definition 3: %v %q", err, s)
	}

	name, ok := img.StringAt(2)
	if !ok || name != "scene-one" {
		t.Fatalf("StringAt(2) = %q, %v", name, ok)
	}
}

func TestLoadCompressedMatchesUncompressed(t *testing.T) {
	body := buildBody(t)
	uncompressed, err := Load(wrapUncompressed(body))
	if err != nil {
		t.Fatalf("Load uncompressed: %v", err)
	}
	compressed, err := Load(wrapCompressed(body, t))
	if err != nil {
		t.Fatalf("Load compressed: %v", err)
	}

	if !bytes.Equal(uncompressed.Instructions, compressed.Instructions) {
		t.Error("instructions differ between compressed and uncompressed loads")
	}
	if len(uncompressed.StringTable) != len(compressed.StringTable) {
		t.Error("string table length differs")
	}
	if compressed.Flags&FlagCompressed == 0 {
		t.Error("expected FlagCompressed set on loaded image")
	}
}

func TestLoadInvalidSignature(t *testing.T) {
	data := wrapUncompressed(buildBody(t))
	data[0] = 'X'
	if _, err := Load(data); err == nil {
		t.Error("expected error for invalid signature")
	}
}

func TestLoadUnsupportedVersion(t *testing.T) {
	data := wrapUncompressed(buildBody(t))
	data[3] = SupportedVersion + 1
	if _, err := Load(data); err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestLoadTruncated(t *testing.T) {
	data := wrapUncompressed(buildBody(t))
	truncated := data[:len(data)-10]
	if _, err := Load(truncated); err == nil {
		t.Error("expected error for truncated stream")
	}
}

func TestReplaceTranslations(t *testing.T) {
	img, err := Load(wrapUncompressed(buildBody(t)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	img.ReplaceTranslations([]string{"salut"})
	if !img.TranslationLoaded {
		t.Error("TranslationLoaded should be true after ReplaceTranslations")
	}
	s, err := img.Resolve(StringRef(translationBit | 0))
	if err != nil || s != "salut" {
		t.Fatalf("resolve after replace: %v %q", err, s)
	}
}
