package logrecord

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Serializes a record into its wire form.
// Length fields are computed from the tag and content, never taken from the caller.
func Encode(record Record) (payload []byte, err error) {
	if len(record.Tag) > MaxTagLen {
		err = fmt.Errorf("%w: %d bytes (max %d)", ErrTagTooLong, len(record.Tag), MaxTagLen)
		return
	}
	total := record.Length()
	if total > MaxLogLen {
		err = fmt.Errorf("%w: %d bytes (max %d)", ErrTooLong, total, MaxLogLen)
		return
	}

	header := record.Header()

	buf := bytes.NewBuffer(make([]byte, 0, total))

	// HEADER
	if err = writeUint16(buf, header.Len); err != nil {
		err = fmt.Errorf("failed to serialize Len: %v", err)
		return
	}
	if err = writeUint16(buf, packBitfield(header)); err != nil {
		err = fmt.Errorf("failed to serialize bitfield: %v", err)
		return
	}
	if err = writeUint32(buf, header.TimeSec); err != nil {
		err = fmt.Errorf("failed to serialize TimeSec: %v", err)
		return
	}
	if err = writeUint32(buf, header.TimeNsec); err != nil {
		err = fmt.Errorf("failed to serialize TimeNsec: %v", err)
		return
	}
	if err = writeUint32(buf, header.MonoSec); err != nil {
		err = fmt.Errorf("failed to serialize MonoSec: %v", err)
		return
	}
	if err = writeUint32(buf, header.Pid); err != nil {
		err = fmt.Errorf("failed to serialize Pid: %v", err)
		return
	}
	if err = writeUint32(buf, header.Tid); err != nil {
		err = fmt.Errorf("failed to serialize Tid: %v", err)
		return
	}
	if err = writeUint32(buf, header.Domain); err != nil {
		err = fmt.Errorf("failed to serialize Domain: %v", err)
		return
	}

	// TAG
	if err = writeTerminated(buf, []byte(record.Tag), MaxTagLen); err != nil {
		err = fmt.Errorf("failed to serialize Tag: %v", err)
		return
	}

	// CONTENT
	if err = writeTerminated(buf, []byte(record.Content), total-buf.Len()-lenTerminator); err != nil {
		err = fmt.Errorf("failed to serialize Content: %v", err)
		return
	}

	if buf.Len() != total {
		err = fmt.Errorf("%w: wrote %d bytes, expected %d", ErrLengthMismatch, buf.Len(), total)
		return
	}

	payload = buf.Bytes()
	return
}

func packBitfield(header Header) (field uint16) {
	field |= (uint16(header.Version) & mask(versionBits)) << versionShift
	field |= (uint16(header.Type) & mask(typeBits)) << typeShift
	field |= (uint16(header.Level) & mask(levelBits)) << levelShift
	field |= (uint16(header.TagLen) & mask(tagLenBits)) << tagLenShift
	return
}

func unpackBitfield(field uint16, header *Header) {
	header.Version = uint8((field >> versionShift) & mask(versionBits))
	header.Type = Type((field >> typeShift) & mask(typeBits))
	header.Level = Level((field >> levelShift) & mask(levelBits))
	header.TagLen = uint8((field >> tagLenShift) & mask(tagLenBits))
}

func mask(bits uint16) (m uint16) {
	m = (1 << bits) - 1
	return
}

// Write two bytes to provided buffer (little endian)
func writeUint16(buf *bytes.Buffer, value uint16) (err error) {
	err = binary.Write(buf, binary.LittleEndian, value)
	if err != nil {
		err = fmt.Errorf("failed to write uint16: %v", err)
		return
	}
	return
}

// Write four bytes to provided buffer (little endian)
func writeUint32(buf *bytes.Buffer, value uint32) (err error) {
	err = binary.Write(buf, binary.LittleEndian, value)
	if err != nil {
		err = fmt.Errorf("failed to write uint32: %v", err)
		return
	}
	return
}

// Writes data followed by a terminator, refusing anything longer than limit
func writeTerminated(buf *bytes.Buffer, data []byte, limit int) (err error) {
	if len(data) > limit {
		err = fmt.Errorf("data length %d exceeds available space %d", len(data), limit)
		return
	}

	_, err = buf.Write(data)
	if err != nil {
		err = fmt.Errorf("failed to write: %v", err)
		return
	}

	err = buf.WriteByte(terminatorByte)
	if err != nil {
		err = fmt.Errorf("failed to write terminator: %v", err)
		return
	}
	return
}
