package kmsg

import (
	"devlogd/pkg/logrecord"
	"fmt"
)

// Syslog severity codes as used in the kmsg prefix
var severityToLevel = map[uint16]logrecord.Level{
	0: logrecord.LevelFatal, // emerg
	1: logrecord.LevelFatal, // alert
	2: logrecord.LevelFatal, // crit
	3: logrecord.LevelError, // err
	4: logrecord.LevelWarn,  // warning
	5: logrecord.LevelInfo,  // notice
	6: logrecord.LevelInfo,  // info
	7: logrecord.LevelDebug, // debug
}

var codeToFacility = map[uint16]string{
	0:  "kern",
	1:  "user",
	2:  "mail",
	3:  "daemon",
	4:  "auth",
	5:  "syslog",
	6:  "lpr",
	7:  "news",
	8:  "uucp",
	9:  "cron",
	10: "authpriv",
	11: "ftp",
	16: "local0",
	17: "local1",
	18: "local2",
	19: "local3",
	20: "local4",
	21: "local5",
	22: "local6",
	23: "local7",
}

// Splits a kmsg priority value into record level and facility name
func decodePriority(priority uint16) (level logrecord.Level, facility string, err error) {
	level = severityToLevel[priority&0x7]

	facility, exists := codeToFacility[priority>>3]
	if !exists {
		err = fmt.Errorf("unknown facility code: %d", priority>>3)
		return
	}
	return
}
