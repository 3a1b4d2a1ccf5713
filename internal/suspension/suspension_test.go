package suspension

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parascc/partarjan/internal/engine"
	"github.com/parascc/partarjan/internal/pendingqueue"
)

func push(s *engine.Search, c *engine.Cell) {
	c.Claim(s)
	s.PushToStacks(c)
}

func TestSuspendOnCompleteCellResumesImmediately(t *testing.T) {
	pending := pendingqueue.New()
	mgr := New(pending)

	conflict := engine.NewCell(1, 3)
	owner := engine.NewSearch()
	push(owner, conflict)
	conflict.MarkComplete()

	sn := engine.NewSearch()
	outcome, done := mgr.Suspend(sn, conflict)

	require.Equal(t, Resumed, outcome)
	require.Empty(t, done)
	require.Nil(t, sn.BlockedOn())
}

func TestSuspendNoCycleSuspends(t *testing.T) {
	pending := pendingqueue.New()
	mgr := New(pending)

	conflict := engine.NewCell(1, 3)
	owner := engine.NewSearch()
	push(owner, conflict)
	// owner is not blocked on anything, so there is no cycle to find.

	sn := engine.NewSearch()
	outcome, done := mgr.Suspend(sn, conflict)

	require.Equal(t, Suspended, outcome)
	require.Nil(t, done)
	require.Equal(t, conflict, sn.BlockedOn())
	require.Equal(t, 1, conflict.BlockedSearches().Size())
}

// TestSuspendDetectsAndResolvesTwoCycle builds the minimal blocking cycle:
// sa owns ca and is blocked on cb (owned by sb); sb (the suspending
// search) now tries to claim ca and finds it occupied by sa. This closes
// a two-search cycle, so the stack-transfer protocol must fire: ca moves
// onto sb's stacks and sa, left with nothing, is reported done.
func TestSuspendDetectsAndResolvesTwoCycle(t *testing.T) {
	pending := pendingqueue.New()
	mgr := New(pending)

	sa := engine.NewSearch()
	ca := engine.NewCell(1, 3)
	push(sa, ca)

	sb := engine.NewSearch()
	cb := engine.NewCell(2, 3)
	push(sb, cb)

	cb.BlockSearch(sa)
	sa.SuspendOn(cb)

	outcome, done := mgr.Suspend(sb, ca)

	require.Equal(t, Resumed, outcome)
	require.ElementsMatch(t, []*engine.Search{sa}, done)

	require.Equal(t, sb, ca.Owner())
	require.True(t, sa.TarjanEmpty())
	require.True(t, sa.ControlEmpty())
	require.Nil(t, sa.BlockedOn())
	require.Nil(t, sb.BlockedOn())

	require.EqualValues(t, 0, sa.Age()%2, "consensus age must be restored to even")
	require.EqualValues(t, 0, sb.Age()%2, "consensus age must be restored to even")
}

func TestBulkUnsuspendPushesLiveSearchesToPending(t *testing.T) {
	pending := pendingqueue.New()
	mgr := New(pending)

	cell := engine.NewCell(1, 3)
	s1, s2 := engine.NewSearch(), engine.NewSearch()
	s1.SuspendOn(cell)
	s2.SuspendOn(cell)
	cell.BlockSearch(s1)
	cell.BlockSearch(s2)

	mgr.BulkUnsuspend(cell)

	require.Nil(t, s1.BlockedOn())
	require.Nil(t, s2.BlockedOn())

	got := map[*engine.Search]bool{}
	for {
		s := pending.Get()
		if s == nil {
			break
		}
		got[s] = true
	}
	require.Len(t, got, 2)
	require.True(t, got[s1])
	require.True(t, got[s2])
}

func TestBulkUnsuspendSkipsStaleEntries(t *testing.T) {
	pending := pendingqueue.New()
	mgr := New(pending)

	cell := engine.NewCell(1, 3)
	s := engine.NewSearch()
	cell.BlockSearch(s)
	// s never actually ended up blocked on cell (stale entry): its
	// blockedOn is nil, so the CAS in BulkUnsuspend must fail silently.

	mgr.BulkUnsuspend(cell)
	require.True(t, pending.IsDone())
}
