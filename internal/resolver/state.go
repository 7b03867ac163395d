package resolver

import "github.com/dataset-hub/dataset-hub/internal/table"

// tierState 是单层在一次解析中的状态。
type tierState int

const (
	stateNotTried tierState = iota
	stateChecked
	stateDone
	stateFailed
)

// chainTrace 显式记录本次解析的层状态机：
// NotTried → Checked → Done，或在任一层 Failed。
type chainTrace struct {
	states   map[table.Source]tierState
	failures []TierFailure
}

func newChainTrace() *chainTrace {
	return &chainTrace{states: map[table.Source]tierState{
		table.SourceLocal:  stateNotTried,
		table.SourceRemote: stateNotTried,
		table.SourceLive:   stateNotTried,
	}}
}

func (c *chainTrace) checked(tier table.Source) {
	c.states[tier] = stateChecked
}

func (c *chainTrace) failed(tier table.Source, err error) {
	c.states[tier] = stateFailed
	c.failures = append(c.failures, TierFailure{Tier: tier, Err: err})
}

func (c *chainTrace) done(tier table.Source) {
	c.states[tier] = stateDone
}

func (c *chainTrace) state(tier table.Source) tierState {
	return c.states[tier]
}
