package store

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	newValue any
	oldValue any
}

func TestStore_GetUnset(t *testing.T) {
	s := New(nil)

	assert.Equal(t, Unset, s.Get("missing"))
	_, ok := s.Lookup("missing")
	assert.False(t, ok)
	assert.Empty(t, s.Keys())
}

func TestStore_LastWriteWins(t *testing.T) {
	s := New(nil)
	var got []change
	s.Subscribe("count", func(n, o any) { got = append(got, change{n, o}) })

	for i := 1; i <= 4; i++ {
		s.Set("count", i)
	}

	assert.Equal(t, 4, s.Get("count"))
	require.Len(t, got, 4, "one notification per Set")
	assert.Equal(t, change{1, Unset}, got[0])
	assert.Equal(t, change{2, 1}, got[1])
	assert.Equal(t, change{3, 2}, got[2])
	assert.Equal(t, change{4, 3}, got[3])
}

func TestStore_SubscriptionOrder(t *testing.T) {
	s := New(nil)
	var order []string
	s.Subscribe("k", func(any, any) { order = append(order, "first") })
	s.Subscribe("k", func(any, any) { order = append(order, "second") })
	s.Subscribe("other", func(any, any) { order = append(order, "other") })
	s.Subscribe("k", func(any, any) { order = append(order, "third") })

	s.Set("k", true)

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestStore_ListenerSeesAppliedValue(t *testing.T) {
	s := New(nil)
	var seen any
	s.Subscribe("theme", func(any, any) { seen = s.Get("theme") })

	s.Set("theme", "dark")
	assert.Equal(t, "dark", seen)
}

func TestStore_Unsubscribe(t *testing.T) {
	t.Run("StopsNotifications", func(t *testing.T) {
		s := New(nil)
		calls := 0
		sub := s.Subscribe("k", func(any, any) { calls++ })

		s.Set("k", 1)
		s.Unsubscribe(sub)
		s.Set("k", 2)

		assert.Equal(t, 1, calls)
		assert.Zero(t, s.ListenerCount("k"))
	})

	t.Run("UnknownIsNoop", func(t *testing.T) {
		s := New(nil)
		sub := s.Subscribe("k", func(any, any) {})
		s.Unsubscribe(sub)
		s.Unsubscribe(sub)
		s.Unsubscribe(Subscription{})
		assert.Zero(t, s.ListenerCount("k"))
	})

	t.Run("DuringNotification", func(t *testing.T) {
		s := New(nil)
		laterCalls := 0
		var later Subscription
		s.Subscribe("k", func(any, any) { s.Unsubscribe(later) })
		later = s.Subscribe("k", func(any, any) { laterCalls++ })

		s.Set("k", 1)
		s.Set("k", 2)
		assert.Zero(t, laterCalls)
	})
}

func TestStore_PanickingListenerIsIsolated(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := New(logger.WithField("component", "store"))

	var after []any
	s.Subscribe("k", func(any, any) { panic("listener broke") })
	s.Subscribe("k", func(n, _ any) { after = append(after, n) })

	s.Set("k", "v")

	assert.Equal(t, []any{"v"}, after)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "k", hook.LastEntry().Data["key"])
}

func TestStore_NestedSet(t *testing.T) {
	s := New(nil)
	s.Subscribe("a", func(n, _ any) { s.Set("b", n.(int)*10) })

	s.Set("a", 2)
	assert.Equal(t, 20, s.Get("b"))
}

func TestStore_Watch(t *testing.T) {
	s := New(nil)
	var order []string
	s.Subscribe("k", func(any, any) { order = append(order, "listener") })
	cancel := s.Watch(func(key string, n, o any) {
		order = append(order, "watch:"+key)
	})

	s.Set("k", 1)
	s.Set("j", 1)
	cancel()
	s.Set("k", 2)
	cancel()

	assert.Equal(t, []string{"listener", "watch:k", "watch:j", "listener"}, order)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	s := New(nil)
	s.Update("n", func(cur any) any {
		assert.Equal(t, Unset, cur)
		return 1
	})
	s.Update("n", func(cur any) any { return cur.(int) + 1 })
	assert.Equal(t, 2, s.Get("n"))

	var got []change
	s.Subscribe("n", func(n, o any) { got = append(got, change{n, o}) })
	s.Delete("n")
	s.Delete("n")

	assert.Equal(t, []change{{Unset, 2}}, got)
	_, ok := s.Lookup("n")
	assert.False(t, ok)
}

func TestValue(t *testing.T) {
	s := New(nil)
	s.Set("theme", "light")
	s.Set("count", 3)

	theme, ok := Value[string](s, "theme")
	assert.True(t, ok)
	assert.Equal(t, "light", theme)

	_, ok = Value[string](s, "count")
	assert.False(t, ok)

	_, ok = Value[int](s, "missing")
	assert.False(t, ok)
}
