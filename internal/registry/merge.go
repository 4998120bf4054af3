package registry

import (
	"cmp"
	"slices"
)

// Merge combines both event streams into one timeline ordered by block number and
// then transaction index. The sort is stable over the registered-then-unregistered
// concatenation, so entries sharing a block and transaction keep that order.
// Log index is not part of the key. Inputs are not modified.
func Merge(registered []EventLog[RegisteredEvent], unregistered []EventLog[UnregisteredEvent]) []EventLog[MembershipEvent] {
	merged := make([]EventLog[MembershipEvent], 0, len(registered)+len(unregistered))
	for _, ev := range registered {
		merged = append(merged, EventLog[MembershipEvent]{Event: ev.Event, Log: ev.Log})
	}
	for _, ev := range unregistered {
		merged = append(merged, EventLog[MembershipEvent]{Event: ev.Event, Log: ev.Log})
	}

	slices.SortStableFunc(merged, func(a, b EventLog[MembershipEvent]) int {
		return cmp.Or(
			cmp.Compare(a.Log.BlockNumber, b.Log.BlockNumber),
			cmp.Compare(a.Log.TxIndex, b.Log.TxIndex),
		)
	})
	return merged
}
