// Package snowflake mints the time-ordered message ids the store assigns on
// append. Ids from the same node are strictly increasing, which is what
// keeps the messages partition clustered in creation order.
package snowflake

import (
	"fmt"
	"sync"
	"time"
)

// Layout: 41 bits of milliseconds since the custom epoch, 10 bits of node
// id, 12 bits of per-millisecond sequence.
const (
	nodeBits = 10
	stepBits = 12

	nodeMax   = -1 ^ (-1 << nodeBits)
	stepMask  = -1 ^ (-1 << stepBits)
	timeShift = nodeBits + stepBits
	nodeShift = stepBits

	// The custom epoch keeps the timestamp field small.
	epoch int64 = 1704067200000 // 2024-01-01T00:00:00Z
)

// Node mints ids for one service instance; each instance gets a distinct
// node id so concurrently minted ids never collide.
type Node struct {
	mu   sync.Mutex
	time int64
	node int64
	step int64
}

func NewNode(node int64) (*Node, error) {
	if node < 0 || node > nodeMax {
		return nil, fmt.Errorf("node id %d out of range [0, %d]", node, nodeMax)
	}
	return &Node{node: node}, nil
}

func (n *Node) Generate() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < n.time {
		// Clock went backwards; hold the last timestamp rather than
		// risk reissuing an id.
		now = n.time
	}

	if now == n.time {
		n.step = (n.step + 1) & stepMask
		if n.step == 0 {
			// Sequence exhausted for this millisecond, spin to the next.
			for now <= n.time {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		n.step = 0
	}
	n.time = now

	return ((now - epoch) << timeShift) | (n.node << nodeShift) | n.step
}
