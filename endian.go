package pikl

import "unsafe"

// hostFloatLayout classifies how the platform lays out an IEEE-754 double
// in memory, the same three-way classification chutney/chutneyutil.c's
// detect_ieee_fp performs: probe once, memoize, and treat anything that
// isn't clearly little- or big-endian IEEE-754 as unsupported.
type hostFloatLayout int

const (
	floatLayoutUnknown hostFloatLayout = iota
	floatLayoutLittleEndian
	floatLayoutBigEndian
	floatLayoutUnsupported
)

// Bit pattern of the probe constant 19210354409446948.0, byte-for-byte as
// chutneyutil.c's detect_ieee_fp compares against, for a little-endian and
// a big-endian IEEE-754 double respectively.
var (
	probeLE = [8]byte{0x89, 0x67, 0xa5, 0xcb, 0xed, 0x0f, 0x51, 0x43}
	probeBE = [8]byte{0x43, 0x51, 0x0f, 0xed, 0xcb, 0xa5, 0x67, 0x89}
)

var probedFloatLayout = floatLayoutUnknown

// detectFloatLayout returns the memoized classification of the host's
// float64 memory layout, probing it on first call.
//
// The probe writes a known double into memory and reads its raw bytes back
// through an unsafe.Pointer cast, which is the Go analogue of the C probe's
// memcpy-free reinterpretation of the same double as a byte array: both
// observe the actual in-memory byte order the hardware uses, not merely the
// bit pattern of the value. Concurrent first calls from multiple
// goroutines may race on the write to probedFloatLayout, but every writer
// computes the same answer for a given binary, so the race is benign (see
// spec's concurrency note on this exact memoization).
func detectFloatLayout() hostFloatLayout {
	if probedFloatLayout != floatLayoutUnknown {
		return probedFloatLayout
	}

	const magic float64 = 19210354409446948.0
	var raw [8]byte
	*(*float64)(unsafe.Pointer(&raw[0])) = magic

	switch raw {
	case probeLE:
		probedFloatLayout = floatLayoutLittleEndian
	case probeBE:
		probedFloatLayout = floatLayoutBigEndian
	default:
		probedFloatLayout = floatLayoutUnsupported
	}
	return probedFloatLayout
}
