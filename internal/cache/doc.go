// Package cache provides a byte-bounded LRU cache for blob blocks.
package cache
