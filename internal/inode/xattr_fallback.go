//go:build !linux

package inode

// ReadXattrFP returns a zero fingerprint on platforms without lxattr
// support; all files then compare as having no extended attributes.
func ReadXattrFP(path string) XattrFP {
	return XattrFP{}
}
