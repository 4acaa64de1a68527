package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

// poolBuilder assembles raw class-file bytes for tests.
type poolBuilder struct {
	body  []byte
	slots int
}

func (b *poolBuilder) utf8(s string) *poolBuilder {
	return b.utf8Raw([]byte(s))
}

func (b *poolBuilder) utf8Raw(p []byte) *poolBuilder {
	b.body = append(b.body, byte(TagUtf8))
	b.body = binary.BigEndian.AppendUint16(b.body, uint16(len(p)))
	b.body = append(b.body, p...)
	b.slots++
	return b
}

func (b *poolBuilder) raw(tag Tag, payload ...byte) *poolBuilder {
	b.body = append(b.body, byte(tag))
	b.body = append(b.body, payload...)
	b.slots++
	if tag.Wide() {
		b.slots++
	}
	return b
}

func (b *poolBuilder) build(trailing []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, Magic)
	out = binary.BigEndian.AppendUint16(out, 0)
	out = binary.BigEndian.AppendUint16(out, 52)
	out = binary.BigEndian.AppendUint16(out, uint16(b.slots+1))
	out = append(out, b.body...)
	return append(out, trailing...)
}

func sampleClass() []byte {
	b := &poolBuilder{}
	b.utf8("com/example/Greeter").
		raw(TagClass, 0x00, 0x01).
		utf8("Hello World").
		raw(TagString, 0x00, 0x03).
		raw(TagInteger, 0x00, 0x00, 0x00, 0x2A).
		raw(TagFloat, 0x3F, 0x80, 0x00, 0x00).
		raw(TagLong, 1, 2, 3, 4, 5, 6, 7, 8).
		raw(TagDouble, 8, 7, 6, 5, 4, 3, 2, 1).
		raw(TagFieldref, 0x00, 0x02, 0x00, 0x0C).
		raw(TagMethodref, 0x00, 0x02, 0x00, 0x0C).
		raw(TagInterfaceMethodref, 0x00, 0x02, 0x00, 0x0C).
		raw(TagNameAndType, 0x00, 0x01, 0x00, 0x03).
		raw(TagMethodHandle, 0x05, 0x00, 0x0B).
		raw(TagMethodType, 0x00, 0x01).
		raw(TagInvokeDynamic, 0x00, 0x00, 0x00, 0x0E).
		utf8Raw([]byte{0xC0, 0x80})
	return b.build([]byte{0x00, 0x21, 0x00, 0x02, 0xDE, 0xAD, 0xBE, 0xEF})
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	data := sampleClass()

	cf, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cf.MajorVersion != 52 || cf.MinorVersion != 0 {
		t.Fatalf("unexpected version %d.%d", cf.MajorVersion, cf.MinorVersion)
	}
	if !bytes.Equal(cf.Trailing, []byte{0x00, 0x21, 0x00, 0x02, 0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("unexpected trailing bytes %x", cf.Trailing)
	}

	out, err := Encode(cf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("round trip mismatch\n got %x\nwant %x", out, data)
	}
}

func TestIdentityMutationIsByteExact(t *testing.T) {
	data := (&poolBuilder{}).utf8("Press E to open the inventory").utf8("§aWelcome, %s!").build([]byte{1, 2, 3})

	cf, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if changed := cf.MutateUTF8(func(s string) string { return s }); changed != 0 {
		t.Fatalf("identity mutation reported %d changes", changed)
	}
	out, err := Encode(cf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("identity mutation changed bytes")
	}
}

func TestSlotAccountingForWideEntries(t *testing.T) {
	data := (&poolBuilder{}).
		utf8("one").
		raw(TagLong, 0, 0, 0, 0, 0, 0, 0, 1).
		utf8("two").
		raw(TagDouble, 0, 0, 0, 0, 0, 0, 0, 2).
		build(nil)

	cf, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	real := cf.Entries()
	if real != 4 {
		t.Fatalf("expected 4 real entries, got %d", real)
	}
	if cf.Pool[3] != nil || cf.Pool[6] != nil {
		t.Fatalf("expected phantom slots after wide entries")
	}
	if cf.Pool[4] == nil || string(cf.Pool[4].Bytes) != "two" {
		t.Fatalf("entry after phantom misplaced")
	}

	out, err := Encode(cf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	count := int(binary.BigEndian.Uint16(out[8:10]))
	if want := real + 2 + 1; count != want {
		t.Fatalf("encoded pool count = %d, want %d", count, want)
	}
}

func TestMutateUTF8(t *testing.T) {
	data := sampleClass()
	cf, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	changed := cf.MutateUTF8(func(s string) string {
		if s == "Hello World" {
			return "你好，世界"
		}
		return s
	})
	if changed != 1 {
		t.Fatalf("expected 1 change, got %d", changed)
	}

	out, err := Encode(cf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode mutated: %v", err)
	}
	if got := string(again.Pool[3].Bytes); got != "你好，世界" {
		t.Fatalf("mutated entry = %q", got)
	}
	if !bytes.Equal(again.Trailing, cf.Trailing) {
		t.Fatalf("trailing bytes changed")
	}
	if len(out) != len(data)+len("你好，世界")-len("Hello World") {
		t.Fatalf("unexpected encoded length %d", len(out))
	}
}

func TestMutateUTF8WritesModifiedUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{name: "plain", in: "Hi 你好", want: []byte("Hi 你好")},
		{name: "nul", in: "a\x00b", want: []byte{'a', 0xC0, 0x80, 'b'}},
		{name: "supplementary", in: "x\U0001F600", want: []byte{'x', 0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cf, err := Decode(sampleClass())
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			cf.MutateUTF8(func(s string) string {
				if s == "Hello World" {
					return tt.in
				}
				return s
			})
			if !bytes.Equal(cf.Pool[3].Bytes, tt.want) {
				t.Fatalf("stored % X, want % X", cf.Pool[3].Bytes, tt.want)
			}
			if _, err := Encode(cf); err != nil {
				t.Fatalf("Encode: %v", err)
			}
		})
	}
}

func TestMutateUTF8SkipsInvalidPayloads(t *testing.T) {
	data := (&poolBuilder{}).utf8Raw([]byte{0xC0, 0x80}).utf8Raw([]byte{0xFF, 0xFE, 0x41}).build(nil)
	cf, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	calls := 0
	cf.MutateUTF8(func(s string) string {
		calls++
		return "replaced"
	})
	if calls != 0 {
		t.Fatalf("expected invalid payloads to be skipped, f called %d times", calls)
	}
	if len(cf.Strings()) != 0 {
		t.Fatalf("expected no decodable strings")
	}
	out, err := Encode(cf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("invalid payloads were not preserved")
	}
}

func TestDecodeFormatErrors(t *testing.T) {
	valid := (&poolBuilder{}).utf8("Hello there").build(nil)

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 0xCB

	unknownTag := (&poolBuilder{}).raw(Tag(2), 0x00).build(nil)

	longAtEnd := binary.BigEndian.AppendUint32(nil, Magic)
	longAtEnd = append(longAtEnd, 0, 0, 0, 52, 0, 2)
	longAtEnd = append(longAtEnd, byte(TagLong), 0, 0, 0, 0, 0, 0, 0, 1)

	zeroCount := binary.BigEndian.AppendUint32(nil, Magic)
	zeroCount = append(zeroCount, 0, 0, 0, 52, 0, 0)

	tests := []struct {
		name   string
		data   []byte
		reason string
	}{
		{name: "empty", data: nil, reason: "truncated"},
		{name: "bad magic", data: badMagic, reason: "bad magic"},
		{name: "truncated header", data: valid[:7], reason: "truncated"},
		{name: "truncated utf8", data: valid[:len(valid)-3], reason: "truncated"},
		{name: "unknown tag", data: unknownTag, reason: "unknown constant pool tag 2"},
		{name: "wide entry overflows count", data: longAtEnd, reason: "overflows"},
		{name: "zero pool count", data: zeroCount, reason: "at least 1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("expected ErrFormat, got %v", err)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FormatError, got %T", err)
			}
			if !strings.Contains(fe.Reason, tt.reason) {
				t.Fatalf("reason %q does not mention %q", fe.Reason, tt.reason)
			}
		})
	}
}

func TestEncodeRejectsOversizedUTF8(t *testing.T) {
	cf, err := Decode((&poolBuilder{}).utf8("Hello there").build(nil))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cf.MutateUTF8(func(string) string { return strings.Repeat("x", 70000) })
	if _, err := Encode(cf); err == nil {
		t.Fatalf("expected error for utf8 payload over 65535 bytes")
	}
}

func TestStringsReportsPoolIndexes(t *testing.T) {
	cf, err := Decode(sampleClass())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := cf.Strings()
	if len(got) != 2 {
		t.Fatalf("expected 2 decodable strings, got %d", len(got))
	}
	if got[0].Index != 1 || got[0].Text != "com/example/Greeter" {
		t.Fatalf("unexpected first string %+v", got[0])
	}
	if got[1].Index != 3 || got[1].Text != "Hello World" {
		t.Fatalf("unexpected second string %+v", got[1])
	}
}
