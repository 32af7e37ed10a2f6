package logrecord

const (
	terminatorByte byte = 0x00

	// Wire field lengths (fixed header)
	lenTotalLen   int = 2
	lenBitfield   int = 2
	lenTimeSec    int = 4
	lenTimeNsec   int = 4
	lenMonoSec    int = 4
	lenPid        int = 4
	lenTid        int = 4
	lenDomain     int = 4
	lenTerminator int = 1

	// Bitfield layout, least significant bit first
	versionBits uint16 = 3
	typeBits    uint16 = 4
	levelBits   uint16 = 3
	tagLenBits  uint16 = 6

	versionShift uint16 = 0
	typeShift    uint16 = versionShift + versionBits
	levelShift   uint16 = typeShift + typeBits
	tagLenShift  uint16 = levelShift + levelBits

	// Calculated
	HeaderSize int = lenTotalLen +
		lenBitfield +
		lenTimeSec +
		lenTimeNsec +
		lenMonoSec +
		lenPid +
		lenTid +
		lenDomain

	// Smallest possible record: header plus two empty terminated strings
	MinRecordLen int = HeaderSize + 2*lenTerminator

	MaxLogLen int = 4096
	MaxTagLen int = 32

	// Current on-wire format version
	FormatVersion uint8 = 0
)
