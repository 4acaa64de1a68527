package classfile

import "fmt"

// Magic is the leading u4 of every class file.
const Magic uint32 = 0xCAFEBABE

// Tag identifies the layout of a constant-pool entry.
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagInvokeDynamic      Tag = 18
)

func (t Tag) String() string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// Wide reports whether entries with this tag occupy two pool slots.
func (t Tag) Wide() bool {
	return t == TagLong || t == TagDouble
}

// Entry is one constant-pool entry. Which fields are meaningful depends on Tag:
//
//	Utf8                                       Bytes (length-prefixed payload)
//	Integer, Float                             Value (raw u4 bits)
//	Long, Double                               Bytes (8 raw bytes)
//	Class, String, MethodType                  Index1
//	Fieldref, Methodref, InterfaceMethodref,
//	NameAndType, InvokeDynamic                 Index1, Index2
//	MethodHandle                               RefKind, Index1
//
// The codec never follows Index1/Index2; they are preserved numerically.
type Entry struct {
	Tag     Tag
	Bytes   []byte
	Value   uint32
	Index1  uint16
	Index2  uint16
	RefKind uint8
}

// ClassFile is a decoded class file. Pool is indexed from 1: Pool[0] is always
// nil, and the slot after a Long or Double entry is a nil phantom. len(Pool)
// equals the declared constant_pool_count.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         []*Entry
	Trailing     []byte
}

// Entries returns the number of non-phantom entries in the pool.
func (cf *ClassFile) Entries() int {
	n := 0
	for _, e := range cf.Pool {
		if e != nil {
			n++
		}
	}
	return n
}
