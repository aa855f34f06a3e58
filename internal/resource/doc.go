// Package resource bounds the memory, search concurrency and segment IO
// bandwidth of an index.
package resource
