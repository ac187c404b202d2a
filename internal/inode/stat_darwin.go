//go:build darwin

package inode

import (
	"io/fs"
	"syscall"
)

// FromFileInfo extracts the inode identity and stat snapshot from an
// os.Lstat result.
func FromFileInfo(info fs.FileInfo) (DevIno, StatSnapshot, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return DevIno{}, StatSnapshot{}, false
	}
	id := DevIno{Dev: uint64(stat.Dev), Ino: stat.Ino}
	snap := StatSnapshot{
		Size:    stat.Size,
		Sec:     stat.Mtimespec.Sec,
		Nsec:    stat.Mtimespec.Nsec,
		Mode:    uint32(stat.Mode),
		UID:     stat.Uid,
		GID:     stat.Gid,
		Nlink:   uint64(stat.Nlink),
		Regular: info.Mode().IsRegular(),
	}
	return id, snap, true
}
