//go:build linux

package watch

import (
	"bytes"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// readBufferSize is the fixed capacity of one inotify read. The kernel
// truncates whatever does not fit between two reads, so delivery under
// event storms is lossy; that is the documented contract, not a bug to fix
// by growing the buffer.
const readBufferSize = 256 * 1024

const inotifyMask = unix.IN_CREATE | unix.IN_DELETE | unix.IN_MODIFY |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO

// inotifySource reads change records from an inotify descriptor. A pipe
// pair gives Cancel a second readiness signal to race against the inotify
// fd, so a blocked ReadBatch unblocks without polling.
type inotifySource struct {
	fd        int
	wd        int
	wakeRead  int
	wakeWrite int
	buf       []byte

	cancelOnce sync.Once
}

func newRawEventSource(root string) (RawEventSource, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, &ResourceError{Path: root, Err: err}
	}
	wd, err := unix.InotifyAddWatch(fd, root, inotifyMask)
	if err != nil {
		unix.Close(fd)
		return nil, &ResourceError{Path: root, Err: err}
	}
	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.InotifyRmWatch(fd, uint32(wd))
		unix.Close(fd)
		return nil, &ResourceError{Path: root, Err: err}
	}
	return &inotifySource{
		fd:        fd,
		wd:        wd,
		wakeRead:  pipe[0],
		wakeWrite: pipe[1],
		buf:       make([]byte, readBufferSize),
	}, nil
}

// ReadBatch waits on both the inotify fd and the wake pipe, reads one
// buffer of records when data arrives, and decodes it. Reads that decode to
// nothing trackable (IN_IGNORED after watch removal, nameless records) go
// back to waiting.
func (s *inotifySource) ReadBatch() ([]RawRecord, error) {
	for {
		fds := []unix.PollFd{
			{Fd: int32(s.fd), Events: unix.POLLIN},
			{Fd: int32(s.wakeRead), Events: unix.POLLIN},
		}
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, os.NewSyscallError("poll", err)
		}
		if fds[1].Revents != 0 {
			return nil, ErrSourceClosed
		}
		if fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			continue
		}
		n, err := unix.Read(s.fd, s.buf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return nil, os.NewSyscallError("read", err)
		}
		if recs := decodeInotify(s.buf[:n]); len(recs) > 0 {
			return recs, nil
		}
	}
}

// Cancel removes the watch so no further records queue up, then writes one
// byte to the wake pipe to unblock a pending poll.
func (s *inotifySource) Cancel() {
	s.cancelOnce.Do(func() {
		unix.InotifyRmWatch(s.fd, uint32(s.wd))
		unix.Write(s.wakeWrite, []byte{0})
	})
}

func (s *inotifySource) Release() error {
	unix.Close(s.wakeRead)
	unix.Close(s.wakeWrite)
	return unix.Close(s.fd)
}

// decodeInotify walks the variable-length records in one inotify read:
// a fixed inotify_event header followed by Len bytes of NUL-padded name.
// A truncated header or over-long name ends the batch. Nameless records
// (queue overflow, watch-removed notices) are skipped.
func decodeInotify(buf []byte) []RawRecord {
	var recs []RawRecord
	for off := 0; off+unix.SizeofInotifyEvent <= len(buf); {
		ev := (*unix.InotifyEvent)(unsafe.Pointer(&buf[off]))
		nameOff := off + unix.SizeofInotifyEvent
		end := nameOff + int(ev.Len)
		if end > len(buf) {
			break
		}
		if ev.Len > 0 {
			name := string(bytes.TrimRight(buf[nameOff:end], "\x00"))
			if action, ok := inotifyAction(ev.Mask); ok && name != "" {
				recs = append(recs, RawRecord{Name: name, Action: action})
			}
		}
		off = end
	}
	return recs
}

// inotifyAction picks the action bit out of an event mask. Masks outside
// the subscribed set decode to nothing.
func inotifyAction(mask uint32) (Action, bool) {
	switch {
	case mask&unix.IN_CREATE != 0:
		return ActionCreate, true
	case mask&unix.IN_DELETE != 0:
		return ActionRemove, true
	case mask&unix.IN_MODIFY != 0:
		return ActionModify, true
	case mask&unix.IN_MOVED_FROM != 0:
		return ActionRenameOld, true
	case mask&unix.IN_MOVED_TO != 0:
		return ActionRenameNew, true
	}
	return 0, false
}
