package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Magic is the 3-byte signature every .dnx file starts with.
var Magic = [3]byte{'D', 'N', 'X'}

// SupportedVersion is the highest binary format version this loader
// understands.
const SupportedVersion byte = 1

// reader is a small cursor over a byte slice with little-endian helpers
// and bounds-checked reads, in the spirit of the teacher's Deserialize.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("unexpected end of bytecode: need %d bytes at pos %d, have %d", n, r.pos, len(r.data)-r.pos)
	}
	return nil
}

func (r *reader) u8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// cstring reads a null-terminated byte string.
func (r *reader) cstring() (string, error) {
	start := r.pos
	for r.pos < len(r.data) {
		if r.data[r.pos] == 0 {
			s := string(r.data[start:r.pos])
			r.pos++
			return s, nil
		}
		r.pos++
	}
	return "", fmt.Errorf("unterminated string starting at pos %d", start)
}

// Load parses a complete .dnx binary image.
func Load(data []byte) (*Image, error) {
	r := &reader{data: data}

	sig, err := r.bytes(3)
	if err != nil {
		return nil, fmt.Errorf("reading signature: %w", err)
	}
	if !bytes.Equal(sig, Magic[:]) {
		return nil, fmt.Errorf("invalid signature %q, expected %q", sig, Magic)
	}

	version, err := r.u8()
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version > SupportedVersion {
		return nil, fmt.Errorf("unsupported bytecode version %d (supports up to %d)", version, SupportedVersion)
	}

	flags, err := r.u8()
	if err != nil {
		return nil, fmt.Errorf("reading flags: %w", err)
	}

	var body []byte
	if flags&FlagCompressed != 0 {
		decompSize, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("reading decompressed size: %w", err)
		}
		compSize, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("reading compressed size: %w", err)
		}
		payload, err := r.bytes(int(compSize))
		if err != nil {
			return nil, fmt.Errorf("reading compressed payload: %w", err)
		}
		body, err = inflateRaw(payload, int(decompSize))
		if err != nil {
			return nil, fmt.Errorf("decompressing body: %w", err)
		}
	} else {
		size, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("reading body size: %w", err)
		}
		body, err = r.bytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
	}

	img := &Image{Version: version, Flags: flags}
	if err := parseBody(img, body); err != nil {
		return nil, err
	}
	img.TranslationLoaded = flags&FlagInternalTranslation != 0
	return img, nil
}

// inflateRaw decompresses a zlib-wrapped DEFLATE payload by skipping the
// 2-byte zlib header and feeding the remainder to a raw DEFLATE reader,
// per the wire format's documented compression scheme.
func inflateRaw(payload []byte, expectedSize int) ([]byte, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("compressed payload too short to contain a zlib header")
	}
	fr := flate.NewReader(bytes.NewReader(payload[2:]))
	defer fr.Close()

	out := make([]byte, 0, expectedSize)
	buf := make([]byte, 4096)
	for {
		n, err := fr.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseBody(img *Image, body []byte) error {
	r := &reader{data: body}

	scenes, err := parseEntries(r, "scene")
	if err != nil {
		return err
	}
	img.Scenes = scenes

	functions, err := parseEntries(r, "function")
	if err != nil {
		return err
	}
	img.Functions = functions

	defCount, err := r.u32()
	if err != nil {
		return fmt.Errorf("reading definition count: %w", err)
	}
	img.Definitions = make(map[uint32]Definition, defCount)
	for i := uint32(0); i < defCount; i++ {
		symbolID, err := r.u32()
		if err != nil {
			return fmt.Errorf("reading definition %d symbol id: %w", i, err)
		}
		stringRef, err := r.u32()
		if err != nil {
			return fmt.Errorf("reading definition %d string ref: %w", i, err)
		}
		bcOffset, err := r.i32()
		if err != nil {
			return fmt.Errorf("reading definition %d bytecode offset: %w", i, err)
		}
		img.Definitions[symbolID] = Definition{
			SymbolID:       symbolID,
			StringRef:      StringRef(stringRef),
			BytecodeOffset: bcOffset,
		}
	}

	codeLen, err := r.u32()
	if err != nil {
		return fmt.Errorf("reading bytecode length: %w", err)
	}
	code, err := r.bytes(int(codeLen))
	if err != nil {
		return fmt.Errorf("reading bytecode: %w", err)
	}
	img.Instructions = append([]byte(nil), code...)

	img.StringTable, err = parseStringList(r, "internal string")
	if err != nil {
		return err
	}

	img.TranslationTable, err = parseStringList(r, "translation string")
	if err != nil {
		return err
	}

	extCount, err := r.u32()
	if err != nil {
		return fmt.Errorf("reading external function count: %w", err)
	}
	img.ExternalFunctions = make([]uint32, extCount)
	for i := range img.ExternalFunctions {
		id, err := r.u32()
		if err != nil {
			return fmt.Errorf("reading external function %d: %w", i, err)
		}
		img.ExternalFunctions[i] = id
	}

	return nil
}

func parseEntries(r *reader, what string) (map[uint32]Entry, error) {
	count, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("reading %s count: %w", what, err)
	}
	entries := make(map[uint32]Entry, count)
	for i := uint32(0); i < count; i++ {
		symbolID, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("reading %s %d symbol id: %w", what, i, err)
		}
		offsetCount, err := r.u16()
		if err != nil {
			return nil, fmt.Errorf("reading %s %d offset count: %w", what, i, err)
		}
		offsets := make([]int32, offsetCount)
		for j := range offsets {
			off, err := r.i32()
			if err != nil {
				return nil, fmt.Errorf("reading %s %d offset %d: %w", what, i, j, err)
			}
			offsets[j] = off
		}
		entries[symbolID] = Entry{SymbolID: symbolID, Offsets: offsets}
	}
	return entries, nil
}

func parseStringList(r *reader, what string) ([]string, error) {
	count, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("reading %s count: %w", what, err)
	}
	list := make([]string, count)
	for i := range list {
		s, err := r.cstring()
		if err != nil {
			return nil, fmt.Errorf("reading %s %d: %w", what, i, err)
		}
		list[i] = s
	}
	return list, nil
}
