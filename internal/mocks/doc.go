// Package mocks provides hand-written test doubles for the store interfaces
// and the JWT service.
//
// Every mock keeps simple in-memory defaults. Set one of its ...Fn fields to
// replace a method's behavior in a single test:
//
//	st := mocks.NewMockTaskStore(task)
//	st.FindDueFn = func(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
//	    return nil, store.ErrUnavailable
//	}
package mocks
