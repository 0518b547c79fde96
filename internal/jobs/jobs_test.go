package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls []time.Duration
	err   error
}

func (f *fakeExpirer) ExpireStale(ttl time.Duration) (int, error) {
	f.calls = append(f.calls, ttl)
	return 2, f.err
}

func TestExpireAlerts(t *testing.T) {
	f := &fakeExpirer{}
	ExpireAlerts(f, time.Hour)()
	require.Equal(t, []time.Duration{time.Hour}, f.calls)

	f.err = errors.New("db down")
	ExpireAlerts(f, time.Hour)()
	require.Len(t, f.calls, 2)
}

func TestNewScheduler_Spec(t *testing.T) {
	_, err := NewScheduler("@every 10m", &fakeExpirer{}, time.Hour)
	require.NoError(t, err)

	_, err = NewScheduler("*/5 * * * *", &fakeExpirer{}, time.Hour)
	require.NoError(t, err)

	_, err = NewScheduler("every ten minutes", &fakeExpirer{}, time.Hour)
	require.Error(t, err)
}
