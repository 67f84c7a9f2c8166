package protocol

// Wire sentinels.
const (
	// NoneU32 marks an absent 32-bit identifier.
	NoneU32 uint32 = 0xFFFFFFFF

	// NoneU16 marks an absent 16-bit identifier.
	NoneU16 uint16 = 0xFFFF

	// SameAsLastCount is the object-list count that means "reuse the
	// previous selection". Any count at or above it has the same meaning.
	SameAsLastCount = 0xFF
)

// Allocation limits to prevent runaway allocations from corrupt length prefixes.
const (
	// DefaultMaxFrameLength is the largest command frame accepted (64KB).
	// Real frames are well under 1KB; the largest carry a full object list.
	DefaultMaxFrameLength = 64 * 1024

	// DefaultMaxChatLength is the largest chat message accepted (64KB).
	DefaultMaxChatLength = 64 * 1024

	// HardMaxFrameLength is the absolute ceiling for frame lengths (16MB).
	// Even if configured higher, lengths are capped at this limit.
	HardMaxFrameLength = 16 * 1024 * 1024

	// SyncExtraLength is the size of the block that follows a sync record
	// whose action checksum is non-zero.
	SyncExtraLength = 332

	// MaxPatrolWaypoints is the capacity of a Patrol command's path.
	MaxPatrolWaypoints = 10

	// MaxUserPatchParams is the most parameters a UserPatchAI command carries.
	MaxUserPatchParams = 4

	// FlareRecipients is the number of recipient slots in a Flare command.
	FlareRecipients = 9
)

// Limits configures the length checks applied while reading a stream.
// Use DefaultLimits() for sensible defaults.
type Limits struct {
	// MaxFrameLength is the largest declared command frame length.
	MaxFrameLength uint32

	// MaxChatLength is the largest declared chat message length.
	MaxChatLength uint32
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFrameLength: DefaultMaxFrameLength,
		MaxChatLength:  DefaultMaxChatLength,
	}
}

// normalize fills zero fields with defaults and clamps to the hard ceiling.
func (l Limits) normalize() Limits {
	if l.MaxFrameLength == 0 {
		l.MaxFrameLength = DefaultMaxFrameLength
	}
	if l.MaxChatLength == 0 {
		l.MaxChatLength = DefaultMaxChatLength
	}
	if l.MaxFrameLength > HardMaxFrameLength {
		l.MaxFrameLength = HardMaxFrameLength
	}
	if l.MaxChatLength > HardMaxFrameLength {
		l.MaxChatLength = HardMaxFrameLength
	}
	return l
}
