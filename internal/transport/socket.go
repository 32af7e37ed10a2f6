package transport

import (
	"context"
	"devlogd/pkg/logrecord"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"syscall"

	"github.com/coreos/go-systemd/v22/activation"
	"golang.org/x/sys/unix"
)

// Mode for the bound socket file, any local process may log
const socketMode fs.FileMode = 0666

// Binds a datagram socket at path with credential passing enabled.
// A stale socket file from a previous run is replaced.
func Listen(path string) (conn *net.UnixConn, err error) {
	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		err = fmt.Errorf("failed to create socket directory: %v", err)
		return
	}

	err = os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("failed to remove stale socket: %v", err)
		return
	}

	cfg := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var err error
			c.Control(func(fd uintptr) {
				err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_PASSCRED, 1)
			})
			return err
		},
	}

	pc, err := cfg.ListenPacket(context.Background(), "unixgram", path)
	if err != nil {
		err = fmt.Errorf("failed to listen on %s: %v", path, err)
		return
	}
	conn = pc.(*net.UnixConn)

	err = os.Chmod(path, socketMode)
	if err != nil {
		conn.Close()
		conn = nil
		err = fmt.Errorf("failed to set socket permissions: %v", err)
		return
	}
	return
}

// Returns the first datagram unix socket passed by the service manager, nil when none
func Activated() (conn *net.UnixConn, err error) {
	conns, err := activation.PacketConns()
	if err != nil {
		err = fmt.Errorf("failed to retrieve activated sockets: %v", err)
		return
	}

	// Only the first unix socket is used
	for _, pc := range conns {
		if pc == nil {
			continue
		}
		unixConn, ok := pc.(*net.UnixConn)
		if ok && conn == nil {
			conn = unixConn
			continue
		}
		pc.Close()
	}
	if conn == nil {
		return
	}

	err = enableCredentials(conn)
	if err != nil {
		conn.Close()
		conn = nil
		return
	}
	return
}

func enableCredentials(conn *net.UnixConn) (err error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		err = fmt.Errorf("failed to access raw socket: %v", err)
		return
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_PASSCRED, 1)
	})
	if err == nil {
		err = sockErr
	}
	if err != nil {
		err = fmt.Errorf("failed to enable credential passing: %v", err)
		return
	}
	return
}

// Extracts sender credentials from the ancillary data of one datagram
func parseCredentials(oob []byte) (cred *logrecord.Credentials, err error) {
	messages, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		err = fmt.Errorf("failed to parse control message: %v", err)
		return
	}

	for i := range messages {
		if messages[i].Header.Level != unix.SOL_SOCKET || messages[i].Header.Type != unix.SCM_CREDENTIALS {
			continue
		}
		ucred, parseErr := unix.ParseUnixCredentials(&messages[i])
		if parseErr != nil {
			err = fmt.Errorf("failed to parse credentials: %v", parseErr)
			return
		}
		cred = &logrecord.Credentials{Pid: ucred.Pid, Uid: ucred.Uid, Gid: ucred.Gid}
		return
	}
	return
}
