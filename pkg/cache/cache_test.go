package cache_test

import (
	"testing"
	"time"

	"github.com/promptarena/verdict/pkg/cache"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCache(t *testing.T) {
	Convey("Given a cache with a controllable clock", t, func() {
		current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		c := cache.New(
			cache.WithMaxSize(3),
			cache.WithTTL(time.Minute),
			cache.WithNowFunc(func() time.Time { return current }),
		)

		Convey("When a value is set and read back", func() {
			c.Set("a", 1)
			v, ok := c.Get("a")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 1)
		})

		Convey("When an entry outlives its TTL", func() {
			c.Set("a", 1)
			current = current.Add(61 * time.Second)

			Convey("Then the read misses and the entry is dropped", func() {
				_, ok := c.Get("a")
				So(ok, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the cache fills past capacity", func() {
			c.Set("a", 1)
			c.Set("b", 2)
			c.Set("c", 3)
			c.Set("d", 4)

			Convey("Then the oldest insert is evicted", func() {
				_, ok := c.Get("a")
				So(ok, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 3)

				for key, want := range map[string]int{"b": 2, "c": 3, "d": 4} {
					v, ok := c.Get(key)
					So(ok, ShouldBeTrue)
					So(v, ShouldEqual, want)
				}
			})
		})

		Convey("When an existing key is set again", func() {
			c.Set("a", 1)
			c.Set("b", 2)
			current = current.Add(30 * time.Second)
			c.Set("a", 10)

			Convey("Then the value and expiry refresh", func() {
				current = current.Add(45 * time.Second)
				v, ok := c.Get("a")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 10)

				// b kept its original expiry and is gone by now
				_, ok = c.Get("b")
				So(ok, ShouldBeFalse)
			})

			Convey("And the key keeps its insertion position for eviction", func() {
				c.Set("c", 3)
				c.Set("d", 4)

				// a is still the oldest insert despite the refresh
				_, ok := c.Get("a")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a key is deleted", func() {
			c.Set("a", 1)
			c.Delete("a")
			_, ok := c.Get("a")
			So(ok, ShouldBeFalse)

			Convey("And deleting an absent key is a no-op", func() {
				c.Delete("ghost")
				So(c.Len(), ShouldEqual, 0)
			})
		})

		Convey("A miss on an unknown key reports not found", func() {
			_, ok := c.Get("nope")
			So(ok, ShouldBeFalse)
		})
	})
}
