// Component for caching arbitrary data (as JSON strings) with a fixed TTL, a size bound, and purging.
//
// Includes an interface and implementations using redis, memcached, and in-process memory.
//
// The moderation engine uses this to hold per-community settings and word/pattern lists, so that evaluating a message rarely touches the authoritative configuration store. Entries may be up to one TTL stale.
package cachestore
