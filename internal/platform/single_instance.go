package platform

import (
	"errors"
	"fmt"
	"hash/crc32"
	"net"
	"os"
	"strconv"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

// Lock ports stay below the IANA ephemeral range so the OS never hands them
// out to outgoing connections.
const (
	lockPortFirst = 41952
	lockPortLast  = 49151
)

// InstanceLock is held by the one process per user that may accept triggers.
// It is a loopback listener, so the OS frees it when the process dies.
type InstanceLock struct {
	key      string
	listener net.Listener
}

// AcquireInstanceLock takes the lock for appName and the current user.
func AcquireInstanceLock(appName string) (*InstanceLock, error) {
	key := lockKey(appName, os.Getuid())
	return listenForLock(key, lockPort(key))
}

func listenForLock(key string, port int) (*InstanceLock, error) {
	address := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("lock %s on %s: %w", key, address, ErrAlreadyRunning)
	}
	return &InstanceLock{key: key, listener: listener}, nil
}

// Release gives the lock up. It is safe on a nil lock.
func (lock *InstanceLock) Release() error {
	if lock == nil || lock.listener == nil {
		return nil
	}
	return lock.listener.Close()
}

// Addr returns the loopback address backing the lock, or "" for a nil lock.
func (lock *InstanceLock) Addr() string {
	if lock == nil || lock.listener == nil {
		return ""
	}
	return lock.listener.Addr().String()
}

// lockKey scopes the lock to one user. uid is -1 on Windows, where the
// per-machine lock is what the service wants anyway.
func lockKey(appName string, uid int) string {
	return appName + "/" + strconv.Itoa(uid)
}

func lockPort(key string) int {
	span := uint32(lockPortLast - lockPortFirst + 1)
	return lockPortFirst + int(crc32.ChecksumIEEE([]byte(key))%span)
}
