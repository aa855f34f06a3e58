// Package mmap maps segment files read-only into memory.
//
// On unix systems files are mapped with mmap(2); elsewhere they are read
// into the heap so callers see the same API.
package mmap
