package logrecord

import "strconv"

// Log category carried in the record header
type Type uint8

const (
	TypeApp            Type = 0 // application logs, exempt from flow control
	TypeInit           Type = 1
	TypeOnlyPrerelease Type = 2
	TypeCore           Type = 3
	TypeKmsg           Type = 4
	TypeMax            Type = 5
)

// Severity carried in the record header
type Level uint8

const (
	LevelDebug Level = 3
	LevelInfo  Level = 4
	LevelWarn  Level = 5
	LevelError Level = 6
	LevelFatal Level = 7
)

var typeNames = map[Type]string{
	TypeApp:            "app",
	TypeInit:           "init",
	TypeOnlyPrerelease: "only_prerelease",
	TypeCore:           "core",
	TypeKmsg:           "kmsg",
}

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

func (t Type) Valid() (valid bool) {
	valid = t < TypeMax
	return
}

func (t Type) String() (name string) {
	name, ok := typeNames[t]
	if !ok {
		name = "invalid(" + strconv.Itoa(int(t)) + ")"
	}
	return
}

func (l Level) Valid() (valid bool) {
	valid = l >= LevelDebug && l <= LevelFatal
	return
}

func (l Level) String() (name string) {
	name, ok := levelNames[l]
	if !ok {
		name = "invalid(" + strconv.Itoa(int(l)) + ")"
	}
	return
}

// Parses a type name as printed by String
func ParseType(name string) (t Type, ok bool) {
	for code, typeName := range typeNames {
		if typeName == name {
			t, ok = code, true
			return
		}
	}
	return
}

// Fixed-size record header as carried on the wire
type Header struct {
	Len      uint16 // total record length
	Version  uint8
	Type     Type
	Level    Level
	TagLen   uint8 // tag length excluding terminator
	TimeSec  uint32
	TimeNsec uint32
	MonoSec  uint32
	Pid      uint32
	Tid      uint32
	Domain   uint32
}

// Parsed log record. Length fields are derived during encoding.
type Record struct {
	Version  uint8
	Type     Type
	Level    Level
	TimeSec  uint32
	TimeNsec uint32
	MonoSec  uint32
	Pid      uint32
	Tid      uint32
	Domain   uint32
	Tag      string
	Content  string
}

// Kernel-verified identity of a socket peer
type Credentials struct {
	Pid int32
	Uid uint32
	Gid uint32
}

// Total encoded length: header, tag, terminator, content, terminator
func (record Record) Length() (total int) {
	total = HeaderSize + len(record.Tag) + lenTerminator + len(record.Content) + lenTerminator
	return
}

// Header as it would be encoded
func (record Record) Header() (header Header) {
	header = Header{
		Len:      uint16(record.Length()),
		Version:  record.Version,
		Type:     record.Type,
		Level:    record.Level,
		TagLen:   uint8(len(record.Tag)),
		TimeSec:  record.TimeSec,
		TimeNsec: record.TimeNsec,
		MonoSec:  record.MonoSec,
		Pid:      record.Pid,
		Tid:      record.Tid,
		Domain:   record.Domain,
	}
	return
}

// Tag and content bytes, excluding the header and both terminators
func (header Header) PayloadLen() (length int) {
	length = int(header.Len) - HeaderSize - 2*lenTerminator
	if length < 0 {
		length = 0
	}
	return
}
