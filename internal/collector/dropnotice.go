package collector

import (
	"devlogd/pkg/logrecord"
	"fmt"
	"strconv"
)

// Tag carried by every synthesized drop notice
const DropNoticeTag = "LOGLIMITD"

// Builds the record announcing how many records a domain lost in its last window.
// Header fields come from the trigger; lengths are recomputed by the encoder.
func BuildDropNotice(trigger logrecord.Record, dropped uint32) (notice logrecord.Record, err error) {
	notice = trigger
	notice.Tag = DropNoticeTag
	notice.Content = strconv.FormatUint(uint64(dropped), 10) + " line(s) dropped!"

	// Only a record that encodes within bounds may be stored
	_, err = logrecord.Encode(notice)
	if err != nil {
		err = fmt.Errorf("failed to encode drop notice: %v", err)
		notice = logrecord.Record{}
		return
	}
	return
}
