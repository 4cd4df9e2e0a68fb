// Package id generates the identifiers classbank hands out: snowflake-based
// transaction references and ULID session IDs.
package id

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	epoch          int64 = 1672531200000 // 2023-01-01 UTC in ms
	nodeBits       uint8 = 10
	sequenceBits   uint8 = 12
	nodeMax              = -1 ^ (-1 << nodeBits)
	sequenceMask         = -1 ^ (-1 << sequenceBits)
	nodeShift      uint8 = sequenceBits
	timestampShift uint8 = sequenceBits + nodeBits
)

var ErrInvalidNode = fmt.Errorf("node ID must be between 0 and %d", nodeMax)

// Snowflake issues time-ordered unique int64 IDs for a single node.
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	nodeID    int64
	sequence  int64
}

func NewSnowflake(nodeID int64) (*Snowflake, error) {
	if nodeID < 0 || nodeID > int64(nodeMax) {
		return nil, ErrInvalidNode
	}
	return &Snowflake{nodeID: nodeID}, nil
}

func (s *Snowflake) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	// Clock rollback: spin until the clock catches up.
	for now < s.timestamp {
		now = time.Now().UnixMilli()
	}

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & sequenceMask
		if s.sequence == 0 {
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}
	s.timestamp = now

	id := ((now - epoch) << timestampShift) | (s.nodeID << nodeShift) | s.sequence
	return strconv.FormatInt(id, 10)
}

// TransactionRef formats a ledger transaction reference, e.g.
// TXN-1234567890123456789.
func (s *Snowflake) TransactionRef() string {
	return "TXN-" + s.Generate()
}

// SessionIDs issues monotonic ULIDs for session identifiers.
type SessionIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewSessionIDs() *SessionIDs {
	return &SessionIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *SessionIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}
