package branch

import (
	"errors"
	"fmt"
)

// RootID is the identifier every ancestor chain ends with.
const RootID = 1

// Config describes the time-bucket hierarchy shared by the timeline tree,
// the data list and the synchronization protocol. Two replicas can only
// be synchronized if their configs are equal.
type Config struct {
	// GroupCount is the number of children aggregated by one parent branch.
	GroupCount uint32
	// Timespan is the width of a level-0 bucket in time units (ms).
	Timespan uint64
	// StartTime is the beginning of the first bucket.
	StartTime int64
}

// ErrTimeOutOfRange is returned for timestamps preceding Config.StartTime.
var ErrTimeOutOfRange = errors.New("time is before the start of the timeline")

// Validate checks that c can be used for addressing.
func (c Config) Validate() error {
	if c.GroupCount < 2 {
		return fmt.Errorf("invalid branch group count %d: must be at least 2", c.GroupCount)
	}
	if c.Timespan == 0 {
		return errors.New("invalid branch timespan: must be positive")
	}
	return nil
}

// ID returns level-0 branch identifier of the bucket containing t.
//
// Buckets are half-open intervals: a timestamp lying exactly on a bucket
// boundary belongs to the next bucket, so ID(StartTime) is 1 and
// ID(StartTime+Timespan) is 2.
func (c Config) ID(t int64) (uint64, error) {
	if t < c.StartTime {
		return 0, fmt.Errorf("%w: %d < %d", ErrTimeOutOfRange, t, c.StartTime)
	}
	return uint64(t-c.StartTime)/c.Timespan + 1, nil
}

// Parent returns the identifier of the branch one level above id.
// Multiples of GroupCount roll over to the next parent, same as ID does.
func (c Config) Parent(id uint64) uint64 {
	return id/uint64(c.GroupCount) + 1
}

// ChildRange returns the inclusive range of child identifiers of parent.
func (c Config) ChildRange(parent uint64) (start, end uint64) {
	g := uint64(c.GroupCount)
	start = (parent - 1) * g
	end = parent*g - 1
	return
}

// IsRoot checks whether id terminates an ancestor chain.
func IsRoot(id uint64) bool {
	return id == RootID
}

// Height returns the level of the root of the chain starting at the
// level-0 branch id. The chain of ID 1 consists of the level-0 node only.
func (c Config) Height(id uint64) int {
	var level int
	for !IsRoot(id) {
		id = c.Parent(id)
		level++
	}
	return level
}
