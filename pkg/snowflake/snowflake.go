// Package snowflake generates 63-bit time-ordered ids for store backends
// that cannot assign their own sequential ids.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	nodeIDBits = 10
	seqBits    = 12

	maxNodeID = -1 ^ (-1 << nodeIDBits)
	seqMask   = -1 ^ (-1 << seqBits)

	timeShift = nodeIDBits + seqBits

	// Custom epoch keeps the timestamp component small.
	epochMillis int64 = 1735689600000 // 2025-01-01 00:00:00 UTC
)

// Node hands out ids for one generator instance. Ids from a single node are
// strictly increasing; ids across nodes are unique as long as node ids are.
type Node struct {
	mu     sync.Mutex
	nodeID int64
	last   int64
	seq    int64
}

func NewNode(nodeID int64) (*Node, error) {
	if nodeID < 0 || nodeID > maxNodeID {
		return nil, errors.New("node id must be between 0 and 1023")
	}
	return &Node{nodeID: nodeID}, nil
}

// Generate returns the next id. It never blocks for longer than the time
// left in the current millisecond.
func (n *Node) Generate() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < n.last {
		// Clock went backwards; keep issuing against the last observed
		// millisecond so ids stay monotonic.
		now = n.last
	}

	if now == n.last {
		n.seq = (n.seq + 1) & seqMask
		if n.seq == 0 {
			// Sequence exhausted for this millisecond, wait out the tick.
			for now <= n.last {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		n.seq = 0
	}
	n.last = now

	return ((now - epochMillis) << timeShift) | (n.nodeID << seqBits) | n.seq
}
