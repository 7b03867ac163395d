package resolver

import (
	"errors"
	"testing"

	"github.com/dataset-hub/dataset-hub/internal/table"
)

func TestChainTraceTransitions(t *testing.T) {
	trace := newChainTrace()
	for _, tier := range []table.Source{table.SourceLocal, table.SourceRemote, table.SourceLive} {
		if trace.state(tier) != stateNotTried {
			t.Fatalf("tier %s must start untried", tier)
		}
	}

	trace.checked(table.SourceLocal)
	trace.failed(table.SourceLocal, errors.New("miss"))
	trace.checked(table.SourceRemote)
	trace.done(table.SourceRemote)

	if trace.state(table.SourceLocal) != stateFailed {
		t.Fatalf("failed tier must end in stateFailed, got %d", trace.state(table.SourceLocal))
	}
	if trace.state(table.SourceRemote) != stateDone {
		t.Fatalf("winning tier must end in stateDone, got %d", trace.state(table.SourceRemote))
	}
	if trace.state(table.SourceLive) != stateNotTried {
		t.Fatalf("untouched tier must stay untried")
	}
	if len(trace.failures) != 1 || trace.failures[0].Tier != table.SourceLocal {
		t.Fatalf("unexpected failure list: %+v", trace.failures)
	}
}
