// Package mmap maps run files read-only so LocalStore can stream them without
// copying through kernel buffers.
//
// Mappings are advised for sequential access: runs are read exactly once,
// front to back, during a merge.
//
//	m, err := mmap.Open("run-L0-000000.txt")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix uses mmap(2) and madvise(2); Windows uses CreateFileMapping and
// MapViewOfFile and ignores advice.
package mmap
