package ceed

// MemType classifies where the bytes of a buffer physically reside.
type MemType uint8

const (
	// MemHost is ordinary host memory, addressable as a Go slice.
	MemHost MemType = iota

	// MemDevice is memory owned by an accelerator device.
	MemDevice
)

// memTypeCount is the number of memory types.
const memTypeCount = 2

// String returns the memory type name.
func (m MemType) String() string {
	switch m {
	case MemHost:
		return "host"
	case MemDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the defined memory types.
func (m MemType) Valid() bool {
	return m < memTypeCount
}

// other returns the memory type that is not m.
func (m MemType) other() MemType {
	if m == MemHost {
		return MemDevice
	}
	return MemHost
}

// memSet is a bit set of memory types.
type memSet uint8

func (s memSet) has(m MemType) bool       { return s&(1<<m) != 0 }
func (s memSet) with(m MemType) memSet    { return s | 1<<m }
func (s memSet) without(m MemType) memSet { return s &^ (1 << m) }

// only returns the set holding just m.
func only(m MemType) memSet { return 1 << m }

// AccessMode is the kind of access requested through GetArray.
type AccessMode uint8

const (
	// ReadWrite lends the array for reading and writing.
	ReadWrite AccessMode = iota

	// ReadOnly lends the array for reading only.
	ReadOnly
)

// String returns the access mode name.
func (m AccessMode) String() string {
	switch m {
	case ReadWrite:
		return "read-write"
	case ReadOnly:
		return "read-only"
	default:
		return "unknown"
	}
}

// AccessState is the borrow state of a Vector.
type AccessState uint8

const (
	// Idle means no array is lent out.
	Idle AccessState = iota

	// AccessedReadWrite means one read-write array is lent out.
	AccessedReadWrite

	// AccessedReadOnly means one read-only array is lent out.
	AccessedReadOnly
)

// String returns the access state name.
func (s AccessState) String() string {
	switch s {
	case Idle:
		return "idle"
	case AccessedReadWrite:
		return "accessed-read-write"
	case AccessedReadOnly:
		return "accessed-read-only"
	default:
		return "unknown"
	}
}

// accessStateFor returns the state entered when lending an array in mode.
func accessStateFor(mode AccessMode) AccessState {
	if mode == ReadOnly {
		return AccessedReadOnly
	}
	return AccessedReadWrite
}

// CopyMode says how SetArray treats the caller's buffer.
type CopyMode uint8

const (
	// CopyValues copies the caller's data into storage owned by the vector.
	CopyValues CopyMode = iota

	// UsePointer borrows the caller's buffer. The vector never frees it.
	UsePointer

	// OwnPointer hands the buffer over. The vector releases it when replaced
	// or destroyed.
	OwnPointer
)

// String returns the copy mode name.
func (m CopyMode) String() string {
	switch m {
	case CopyValues:
		return "copy-values"
	case UsePointer:
		return "use-pointer"
	case OwnPointer:
		return "own-pointer"
	default:
		return "unknown"
	}
}
