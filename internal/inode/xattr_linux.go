//go:build linux

package inode

import (
	"encoding/binary"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
)

// ReadXattrFP reads the file's extended attributes and reduces them to an
// order-independent fingerprint. Files with no xattrs, or whose xattrs
// cannot be read, return a zero fingerprint.
func ReadXattrFP(path string) XattrFP {
	names, err := listXattrNames(path)
	if err != nil || len(names) == 0 {
		return XattrFP{}
	}
	sort.Strings(names)

	h := blake3.New()
	buf := make([]byte, 256)
	for _, name := range names {
		sz, err := unix.Lgetxattr(path, name, buf)
		for err == unix.ERANGE {
			buf = make([]byte, len(buf)*2)
			sz, err = unix.Lgetxattr(path, name, buf)
		}
		if err != nil {
			return XattrFP{}
		}
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(buf[:sz])
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return XattrFP{OK: true, Sum: binary.LittleEndian.Uint64(sum[:8])}
}

func listXattrNames(path string) ([]string, error) {
	buf := make([]byte, 512)
	sz, err := unix.Llistxattr(path, buf)
	for err == unix.ERANGE {
		buf = make([]byte, len(buf)*2)
		sz, err = unix.Llistxattr(path, buf)
	}
	if err != nil {
		return nil, err
	}
	if sz == 0 {
		return nil, nil
	}
	raw := strings.Split(strings.TrimRight(string(buf[:sz]), "\x00"), "\x00")
	names := raw[:0]
	for _, n := range raw {
		if n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}
