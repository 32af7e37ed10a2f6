package server

import (
	"fmt"
	"net/http"
	"time"
)

// Reads starttime/endtime query values.
// Start defaults to one minute ago, end to now. Relative starts must not lie in the future.
func parseTimeRange(clientRequest *http.Request) (start, end time.Time, err error) {
	now := time.Now()

	rawStartTime := clientRequest.FormValue("starttime")
	switch {
	case rawStartTime == "":
		start = now.Add(-1 * time.Minute)
	case rawStartTime[0] == '-' || rawStartTime[0] == '+':
		dur, parseErr := time.ParseDuration(rawStartTime)
		if parseErr != nil {
			// Unreadable relative start falls back to the default
			start = now.Add(-1 * time.Minute)
			break
		}
		if dur > 0 {
			err = fmt.Errorf("relative start time %s is in the future", rawStartTime)
			return
		}
		start = now.Add(dur)
	default:
		start, err = time.Parse(time.RFC3339Nano, rawStartTime)
		if err != nil {
			err = fmt.Errorf("invalid start time: %v", err)
			return
		}
	}

	rawEndTime := clientRequest.FormValue("endtime")
	if rawEndTime == "now" || rawEndTime == "" {
		end = now
	} else {
		end, err = time.Parse(time.RFC3339Nano, rawEndTime)
		if err != nil {
			err = fmt.Errorf("invalid end time: %v", err)
			return
		}
	}
	return
}
