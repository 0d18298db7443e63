package status

// Mode is the single character scoreboard code of a worker slot.
type Mode byte

// Known scoreboard modes. This list is not exhaustive; unrecognized codes are kept as-is.
const (
	ModeUnknown   Mode = 0
	ModeWaiting   Mode = '_' // Waiting for connection
	ModeStarting  Mode = 'S' // Starting up
	ModeReading   Mode = 'R' // Reading request
	ModeSending   Mode = 'W' // Sending reply
	ModeKeepalive Mode = 'K' // Keepalive (read)
	ModeDNSLookup Mode = 'D' // DNS lookup
	ModeClosing   Mode = 'C' // Closing connection
	ModeLogging   Mode = 'L' // Logging
	ModeFinishing Mode = 'G' // Gracefully finishing
	ModeIdleClean Mode = 'I' // Idle cleanup of worker
	ModeEmptySlot Mode = '.' // Open slot with no current process
)

var modeDescriptions = map[Mode]string{
	ModeWaiting:   "waiting for connection",
	ModeStarting:  "starting up",
	ModeReading:   "reading request",
	ModeSending:   "sending reply",
	ModeKeepalive: "keepalive",
	ModeDNSLookup: "DNS lookup",
	ModeClosing:   "closing connection",
	ModeLogging:   "logging",
	ModeFinishing: "gracefully finishing",
	ModeIdleClean: "idle cleanup",
	ModeEmptySlot: "open slot",
}

// ParseMode converts a raw table cell to a Mode.
// Anything that is not exactly one character yields ModeUnknown.
func ParseMode(raw string) Mode {
	if len(raw) != 1 {
		return ModeUnknown
	}

	return Mode(raw[0])
}

// IsIdle reports whether the mode means the worker is not processing a request.
func (m Mode) IsIdle() bool {
	return m == ModeWaiting || m == ModeIdleClean || m == ModeEmptySlot
}

// String returns the scoreboard character, or "?" for ModeUnknown.
func (m Mode) String() string {
	if m == ModeUnknown {
		return "?"
	}

	return string(rune(m))
}

// Description returns a human readable description of the mode.
func (m Mode) Description() string {
	if desc, ok := modeDescriptions[m]; ok {
		return desc
	}

	return "unknown"
}
