package kmsg

import (
	"bytes"
	"devlogd/pkg/logrecord"
	"strconv"
	"time"
)

const (
	// Tag attached to every kernel record
	KernelTag = "kmsg"
	// Pending bytes kept while waiting for a newline
	maxPending = 2 * logrecord.MaxLogLen
)

// Turns raw /dev/kmsg output into records.
// Keeps incomplete lines between calls.
type Parser struct {
	bootTime time.Time
	pending  []byte
}

// Creates a parser converting kernel monotonic stamps to wall time from bootTime
func NewParser(bootTime time.Time) (new *Parser) {
	new = &Parser{bootTime: bootTime}
	return
}

// Consumes one chunk and returns every record completed by it.
// malformed counts complete lines that could not be used.
func (parser *Parser) Parse(chunk []byte) (records []logrecord.Record, malformed int) {
	parser.pending = append(parser.pending, chunk...)

	for {
		end := bytes.IndexByte(parser.pending, '\n')
		if end < 0 {
			break
		}
		line := parser.pending[:end]
		parser.pending = parser.pending[end+1:]

		// Continuation lines carry dictionary properties (" SUBSYSTEM=...")
		if len(line) == 0 || line[0] == ' ' {
			continue
		}

		record, ok := parser.parseLine(line)
		if !ok {
			malformed++
			continue
		}
		records = append(records, record)
	}

	if len(parser.pending) > maxPending {
		parser.pending = nil
		malformed++
	}
	if len(parser.pending) == 0 {
		parser.pending = nil
	}
	return
}

// Line format: "priority,sequence,usec,flags[,...];text"
func (parser *Parser) parseLine(line []byte) (record logrecord.Record, ok bool) {
	sep := bytes.IndexByte(line, ';')
	if sep < 0 {
		return
	}
	prefix := bytes.Split(line[:sep], []byte{','})
	if len(prefix) < 3 {
		return
	}

	priority, err := strconv.ParseUint(string(prefix[0]), 10, 16)
	if err != nil {
		return
	}
	_, err = strconv.ParseUint(string(prefix[1]), 10, 64)
	if err != nil {
		return
	}
	usec, err := strconv.ParseUint(string(prefix[2]), 10, 64)
	if err != nil {
		return
	}

	level, _, err := decodePriority(uint16(priority))
	if err != nil {
		return
	}

	sinceBoot := time.Duration(usec) * time.Microsecond
	wall := parser.bootTime.Add(sinceBoot)

	record = logrecord.Record{
		Version:  logrecord.FormatVersion,
		Type:     logrecord.TypeKmsg,
		Level:    level,
		TimeSec:  uint32(wall.Unix()),
		TimeNsec: uint32(wall.Nanosecond()),
		MonoSec:  uint32(sinceBoot / time.Second),
		Tag:      KernelTag,
		Content:  truncate(unescape(line[sep+1:])),
	}
	ok = true
	return
}

// Reverses the kernel's \xNN escaping of unprintable bytes
func unescape(text []byte) (content string) {
	if bytes.IndexByte(text, '\\') < 0 {
		content = string(text)
		return
	}

	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' && i+3 < len(text) && text[i+1] == 'x' {
			value, err := strconv.ParseUint(string(text[i+2:i+4]), 16, 8)
			if err == nil {
				// Terminators cannot be carried in content
				if value != 0 {
					out = append(out, byte(value))
				}
				i += 3
				continue
			}
		}
		out = append(out, text[i])
	}
	content = string(out)
	return
}

// Cuts content so the record stays within the maximum record length
func truncate(content string) (fitted string) {
	limit := logrecord.MaxLogLen - logrecord.HeaderSize - len(KernelTag) - 2
	fitted = content
	if len(fitted) > limit {
		fitted = fitted[:limit]
	}
	return
}
