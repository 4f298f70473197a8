// Package badge keeps cached unread counts, overall and per category, for a
// notification store.
//
// The Aggregator recomputes counts from its Source on Start, on a periodic
// ticker and whenever it is told about a store mutation through Notify.
// Listeners registered with Subscribe receive a snapshot only when the counts
// actually change.
//
//	agg := badge.New(store, badge.WithInterval(30*time.Second))
//	stop := store.OnChange(agg.Notify)
//	defer stop()
//
//	if err := agg.Start(ctx); err != nil {
//		return err
//	}
//	defer agg.Stop()
//
//	agg.Subscribe(func(c badge.Counts) {
//		fmt.Println("unread:", badge.FormatCount(c.Total))
//	})
package badge
