package dilemmas

// CacheResponse exposes the cache write used by read-through.
var CacheResponse = (*CachedStore).set
