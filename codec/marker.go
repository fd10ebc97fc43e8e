// Package codec implements the typed-value wire format from spec.md §4.2:
// single-byte markers, optionally followed by a size and a payload. It
// follows the same builder-method shape as a codec mutating a byte
// cursor in place (paired EncodeX/DecodeX methods), generalized from IEC
// info-object field types to this protocol's richer value algebra.
package codec

// Marker families and their size-class boundaries (spec.md §4.2).
const (
	markerTinyStringMin = 0x80
	markerTinyStringMax = 0x8F
	markerString8       = 0xD0
	markerString16      = 0xD1
	markerString32      = 0xD2

	markerTinyListMin = 0x90
	markerTinyListMax = 0x9F
	markerList8       = 0xD4
	markerList16      = 0xD5
	markerList32      = 0xD6

	markerTinyMapMin = 0xA0
	markerTinyMapMax = 0xAF
	markerMap8       = 0xD8
	markerMap16      = 0xD9
	markerMap32      = 0xDA

	markerTinyStructMin = 0xB0
	markerTinyStructMax = 0xBF
	markerStruct8       = 0xDC
	markerStruct16      = 0xDD

	markerNull  = 0xC0
	markerFloat = 0xC1
	markerFalse = 0xC2
	markerTrue  = 0xC3

	markerInt8  = 0xC8
	markerInt16 = 0xC9
	markerInt32 = 0xCA
	markerInt64 = 0xCB

	// tinyIntNegMin is the marker byte for the most negative tiny int
	// (-16); markers from here to 0xFF encode -16..-1.
	tinyIntNegMin = 0xF0
	// tinyIntPosMax is the marker byte for the largest tiny positive int
	// (127); markers from 0x00 to here encode 0..127.
	tinyIntPosMax = 0x7F
)

// Struct signatures (spec.md §4.2 and §6).
const (
	sigNode                = 0x4E // 'N'
	sigRelationship        = 0x52 // 'R'
	sigUnboundRelationship = 0x72 // 'r'
	sigPath                = 0x50 // 'P'
	sigDate                = 0x44 // 'D'
	sigTime                = 0x54 // 'T'
	sigLocalTime           = 0x74 // 't'
	sigDateTime            = 0x46 // 'F'
	sigDateTimeZoneID      = 0x66 // 'f'
	sigLocalDateTime       = 0x64 // 'd'
	sigDuration            = 0x45 // 'E'
	sigPoint2D             = 0x58 // 'X'
	sigPoint3D             = 0x59 // 'Y'
)

// Message signatures (spec.md §6).
const (
	SigHello      byte = 0x01 // INIT/HELLO
	SigRun        byte = 0x10
	SigPullAll    byte = 0x3F // PULL_ALL (v1) / PULL (v4, with extra)
	SigAckFailure byte = 0x0E
	SigReset      byte = 0x0F
	SigRecord     byte = 0x71
	SigSuccess    byte = 0x70
	SigFailure    byte = 0x7F
)
