package logrecord

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Deserializes the fixed header only.
// Input shorter than the header is rejected before any field is read.
func DecodeHeader(payload []byte) (header Header, err error) {
	if len(payload) < HeaderSize {
		err = fmt.Errorf("%w: got %d bytes, need %d", ErrTooShort, len(payload), HeaderSize)
		return
	}

	buf := bytes.NewReader(payload[:HeaderSize])

	if err = binary.Read(buf, binary.LittleEndian, &header.Len); err != nil {
		err = fmt.Errorf("failed to deserialize Len: %v", err)
		return
	}
	var bitfield uint16
	if err = binary.Read(buf, binary.LittleEndian, &bitfield); err != nil {
		err = fmt.Errorf("failed to deserialize bitfield: %v", err)
		return
	}
	unpackBitfield(bitfield, &header)
	if err = binary.Read(buf, binary.LittleEndian, &header.TimeSec); err != nil {
		err = fmt.Errorf("failed to deserialize TimeSec: %v", err)
		return
	}
	if err = binary.Read(buf, binary.LittleEndian, &header.TimeNsec); err != nil {
		err = fmt.Errorf("failed to deserialize TimeNsec: %v", err)
		return
	}
	if err = binary.Read(buf, binary.LittleEndian, &header.MonoSec); err != nil {
		err = fmt.Errorf("failed to deserialize MonoSec: %v", err)
		return
	}
	if err = binary.Read(buf, binary.LittleEndian, &header.Pid); err != nil {
		err = fmt.Errorf("failed to deserialize Pid: %v", err)
		return
	}
	if err = binary.Read(buf, binary.LittleEndian, &header.Tid); err != nil {
		err = fmt.Errorf("failed to deserialize Tid: %v", err)
		return
	}
	if err = binary.Read(buf, binary.LittleEndian, &header.Domain); err != nil {
		err = fmt.Errorf("failed to deserialize Domain: %v", err)
		return
	}
	return
}

// Deserializes a full record and checks the length invariant
func Decode(payload []byte) (record Record, err error) {
	header, err := DecodeHeader(payload)
	if err != nil {
		return
	}

	if int(header.Len) != len(payload) {
		err = fmt.Errorf("%w: header says %d, got %d bytes", ErrLengthMismatch, header.Len, len(payload))
		return
	}
	if len(payload) > MaxLogLen {
		err = fmt.Errorf("%w: %d bytes (max %d)", ErrTooLong, len(payload), MaxLogLen)
		return
	}
	if int(header.TagLen) > MaxTagLen {
		err = fmt.Errorf("%w: %d bytes (max %d)", ErrTagTooLong, header.TagLen, MaxTagLen)
		return
	}

	body := payload[HeaderSize:]
	tagEnd := int(header.TagLen)
	if tagEnd >= len(body) || body[tagEnd] != terminatorByte {
		err = fmt.Errorf("%w: tag", ErrMissingTerminator)
		return
	}
	content := body[tagEnd+lenTerminator:]
	if len(content) == 0 || content[len(content)-1] != terminatorByte {
		err = fmt.Errorf("%w: content", ErrMissingTerminator)
		return
	}

	record = Record{
		Version:  header.Version,
		Type:     header.Type,
		Level:    header.Level,
		TimeSec:  header.TimeSec,
		TimeNsec: header.TimeNsec,
		MonoSec:  header.MonoSec,
		Pid:      header.Pid,
		Tid:      header.Tid,
		Domain:   header.Domain,
		Tag:      string(body[:tagEnd]),
		Content:  string(content[:len(content)-1]),
	}
	return
}
