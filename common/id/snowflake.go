package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.RWMutex
	node *snowflake.Node
)

// Init sets the snowflake node for this process. Each replica writing to the
// same database needs its own node id (0-1023).
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("creating snowflake node %d: %w", nodeID, err)
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// New returns a time-ordered int64 id. Without a prior Init it falls back to
// node 0, which is only safe for a single writer.
func New() int64 {
	mu.RLock()
	n := node
	mu.RUnlock()
	if n == nil {
		n = defaultNode()
	}
	return n.Generate().Int64()
}

var defaultOnce sync.Once

func defaultNode() *snowflake.Node {
	defaultOnce.Do(func() {
		mu.Lock()
		if node == nil {
			node, _ = snowflake.NewNode(0)
		}
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return node
}
