package chat

import (
	"hash/fnv"
	"sync"
)

// threadLocks serializes turns per thread with a fixed set of striped
// mutexes. Concurrent appends to one thread would corrupt message
// ordering; distinct threads only contend on hash collisions.
type threadLocks struct {
	stripes [64]sync.Mutex
}

func (l *threadLocks) lock(threadID string) func() {
	h := fnv.New32a()
	h.Write([]byte(threadID))
	mu := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	mu.Lock()
	return mu.Unlock
}
