package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
	"unicode/utf8"
)

type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int, what string) error {
	if n < 0 || len(r.data)-r.pos < n {
		return formatErrorf(r.pos, "truncated reading %s: need %d bytes, have %d", what, n, len(r.data)-r.pos)
	}
	return nil
}

func (r *reader) u1(what string) (uint8, error) {
	if err := r.need(1, what); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u2(what string) (uint16, error) {
	if err := r.need(2, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u4(what string) (uint32, error) {
	if err := r.need(4, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) bytes(n int, what string) ([]byte, error) {
	if err := r.need(n, what); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// Decode parses the header and constant pool of a class file. Everything after
// the pool is kept verbatim in Trailing.
func Decode(data []byte) (*ClassFile, error) {
	r := &reader{data: data}

	magic, err := r.u4("magic")
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, formatErrorf(0, "bad magic 0x%08X", magic)
	}

	cf := &ClassFile{}
	if cf.MinorVersion, err = r.u2("minor_version"); err != nil {
		return nil, err
	}
	if cf.MajorVersion, err = r.u2("major_version"); err != nil {
		return nil, err
	}
	count, err := r.u2("constant_pool_count")
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, formatErrorf(r.pos-2, "constant_pool_count must be at least 1")
	}

	cf.Pool = make([]*Entry, 1, int(count))
	for i := 1; i < int(count); i++ {
		start := r.pos
		entry, err := decodeEntry(r)
		if err != nil {
			return nil, err
		}
		cf.Pool = append(cf.Pool, entry)
		if entry.Tag.Wide() {
			if i+1 >= int(count) {
				return nil, formatErrorf(start, "%s entry at index %d overflows constant_pool_count %d", entry.Tag, i, count)
			}
			cf.Pool = append(cf.Pool, nil)
			i++
		}
	}

	cf.Trailing = make([]byte, len(data)-r.pos)
	copy(cf.Trailing, data[r.pos:])
	return cf, nil
}

func decodeEntry(r *reader) (*Entry, error) {
	start := r.pos
	rawTag, err := r.u1("tag")
	if err != nil {
		return nil, err
	}
	e := &Entry{Tag: Tag(rawTag)}

	switch e.Tag {
	case TagUtf8:
		n, err := r.u2("utf8 length")
		if err != nil {
			return nil, err
		}
		if e.Bytes, err = r.bytes(int(n), "utf8 bytes"); err != nil {
			return nil, err
		}
	case TagInteger, TagFloat:
		if e.Value, err = r.u4(e.Tag.String()); err != nil {
			return nil, err
		}
	case TagLong, TagDouble:
		if e.Bytes, err = r.bytes(8, e.Tag.String()); err != nil {
			return nil, err
		}
	case TagClass, TagString, TagMethodType:
		if e.Index1, err = r.u2(e.Tag.String() + " index"); err != nil {
			return nil, err
		}
	case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagInvokeDynamic:
		if e.Index1, err = r.u2(e.Tag.String() + " index"); err != nil {
			return nil, err
		}
		if e.Index2, err = r.u2(e.Tag.String() + " index"); err != nil {
			return nil, err
		}
	case TagMethodHandle:
		if e.RefKind, err = r.u1("reference_kind"); err != nil {
			return nil, err
		}
		if e.Index1, err = r.u2("reference_index"); err != nil {
			return nil, err
		}
	default:
		return nil, formatErrorf(start, "unknown constant pool tag %d", rawTag)
	}
	return e, nil
}

// Encode serializes cf. The declared pool count is len(cf.Pool); phantom slots
// are skipped and Trailing is appended unchanged.
func Encode(cf *ClassFile) ([]byte, error) {
	if cf == nil {
		return nil, fmt.Errorf("encode: nil class file")
	}
	if len(cf.Pool) == 0 || len(cf.Pool) > math.MaxUint16 {
		return nil, fmt.Errorf("encode: constant pool size %d out of range", len(cf.Pool))
	}

	out := make([]byte, 0, 10+poolSizeHint(cf)+len(cf.Trailing))
	out = binary.BigEndian.AppendUint32(out, Magic)
	out = binary.BigEndian.AppendUint16(out, cf.MinorVersion)
	out = binary.BigEndian.AppendUint16(out, cf.MajorVersion)
	out = binary.BigEndian.AppendUint16(out, uint16(len(cf.Pool)))

	for i := 1; i < len(cf.Pool); i++ {
		e := cf.Pool[i]
		if e == nil {
			if i > 1 && cf.Pool[i-1] != nil && cf.Pool[i-1].Tag.Wide() {
				continue
			}
			return nil, fmt.Errorf("encode: empty constant pool slot %d", i)
		}
		var err error
		if out, err = appendEntry(out, e); err != nil {
			return nil, fmt.Errorf("encode: entry %d: %w", i, err)
		}
		if e.Tag.Wide() {
			if i+1 >= len(cf.Pool) || cf.Pool[i+1] != nil {
				return nil, fmt.Errorf("encode: %s entry %d must be followed by a phantom slot", e.Tag, i)
			}
		}
	}

	return append(out, cf.Trailing...), nil
}

func appendEntry(out []byte, e *Entry) ([]byte, error) {
	out = append(out, byte(e.Tag))
	switch e.Tag {
	case TagUtf8:
		if len(e.Bytes) > math.MaxUint16 {
			return nil, fmt.Errorf("utf8 payload of %d bytes exceeds u2 length", len(e.Bytes))
		}
		out = binary.BigEndian.AppendUint16(out, uint16(len(e.Bytes)))
		out = append(out, e.Bytes...)
	case TagInteger, TagFloat:
		out = binary.BigEndian.AppendUint32(out, e.Value)
	case TagLong, TagDouble:
		if len(e.Bytes) != 8 {
			return nil, fmt.Errorf("%s payload must be 8 bytes, got %d", e.Tag, len(e.Bytes))
		}
		out = append(out, e.Bytes...)
	case TagClass, TagString, TagMethodType:
		out = binary.BigEndian.AppendUint16(out, e.Index1)
	case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagInvokeDynamic:
		out = binary.BigEndian.AppendUint16(out, e.Index1)
		out = binary.BigEndian.AppendUint16(out, e.Index2)
	case TagMethodHandle:
		out = append(out, e.RefKind)
		out = binary.BigEndian.AppendUint16(out, e.Index1)
	default:
		return nil, fmt.Errorf("unknown tag %d", uint8(e.Tag))
	}
	return out, nil
}

func poolSizeHint(cf *ClassFile) int {
	n := 0
	for _, e := range cf.Pool {
		if e != nil {
			n += 5 + len(e.Bytes)
		}
	}
	return n
}

// MutateUTF8 applies f to every Utf8 entry whose payload is valid UTF-8 and
// returns how many entries changed. Payloads that are not valid UTF-8 (including
// the modified-UTF-8 forms of NUL and supplementary characters) are left as-is.
// Replacements are stored in the JVM's modified UTF-8.
func (cf *ClassFile) MutateUTF8(f func(string) string) int {
	changed := 0
	for _, e := range cf.Pool {
		if e == nil || e.Tag != TagUtf8 || !utf8.Valid(e.Bytes) {
			continue
		}
		before := string(e.Bytes)
		after := f(before)
		if after == before {
			continue
		}
		e.Bytes = modifiedUTF8(after)
		changed++
	}
	return changed
}

// modifiedUTF8 encodes s the way the JVM stores CONSTANT_Utf8: NUL as C0 80
// and supplementary characters as two three-byte surrogates. Bytes that are
// not valid UTF-8 are copied through.
func modifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			out = append(out, s[i])
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			out = appendSurrogate(out, hi)
			out = appendSurrogate(out, lo)
		default:
			out = append(out, s[i:i+size]...)
		}
		i += size
	}
	return out
}

func appendSurrogate(out []byte, c rune) []byte {
	return append(out, 0xE0|byte(c>>12), 0x80|byte(c>>6)&0x3F, 0x80|byte(c)&0x3F)
}

// UTF8String is a decodable Utf8 entry and its pool index.
type UTF8String struct {
	Index int
	Text  string
}

// Strings returns every Utf8 entry that decodes as valid UTF-8, in pool order.
func (cf *ClassFile) Strings() []UTF8String {
	var out []UTF8String
	for i, e := range cf.Pool {
		if e == nil || e.Tag != TagUtf8 || !utf8.Valid(e.Bytes) {
			continue
		}
		out = append(out, UTF8String{Index: i, Text: string(e.Bytes)})
	}
	return out
}
