// Handles program lifecycle agnostic of the ingestion components (signals, reloads, service manager notifications)
package lifecycle

import (
	"context"
	"devlogd/internal/global"
	"devlogd/internal/logctx"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sys/unix"
)

// Sends RELOADING=1 to systemd to indicate service reload in progress.
func NotifyReload(ctx context.Context) (err error) {
	var ts unix.Timespec
	err = unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	if err != nil {
		return
	}

	usec := ts.Sec*1_000_000 + int64(ts.Nsec)/1_000

	err = notify(ctx, fmt.Sprintf("%s\nMONOTONIC_USEC=%d", daemon.SdNotifyReloading, usec))
	return
}

// Sends READY=1 to systemd to indicate service startup (or reload) complete.
func NotifyReady(ctx context.Context) (err error) {
	err = notify(ctx, daemon.SdNotifyReady)
	return
}

// Sends STOPPING=1 to systemd once shutdown begins.
func NotifyStopping(ctx context.Context) (err error) {
	err = notify(ctx, daemon.SdNotifyStopping)
	return
}

// Sends custom status message to systemd for context.
func NotifyStatus(ctx context.Context, msg string) (err error) {
	err = notify(ctx, "STATUS="+msg)
	return
}

// Pings the systemd watchdog at half the configured interval until ctx is done.
// Returns immediately when the watchdog is not enabled for this process.
func Watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Invalid systemd watchdog settings: %v\n", err)
		return
	}
	if interval == 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err = notify(ctx, daemon.SdNotifyWatchdog)
			if err != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd watchdog ping failed: %v\n", err)
			}
		}
	}
}

// Sends a raw sd_notify message.
// If NOTIFY_SOCKET is unset, this is a no-op and returns nil.
func notify(ctx context.Context, msg string) (err error) {
	sent, err := daemon.SdNotify(false, msg)
	if err != nil {
		err = fmt.Errorf("notify failed: %v", err)
		return
	}
	if !sent {
		// Not running under systemd
		return
	}

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Successfully notified systemd with message '%s'\n", msg)
	return
}
