package catalog_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/randommarket/internal/domain/catalog"
	"github.com/okian/randommarket/internal/domain/dedupe"
	"github.com/okian/randommarket/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ev(id, title string, markets int) model.Event {
	e := model.Event{ID: id, Title: title}
	for range markets {
		e.Markets = append(e.Markets, model.Market{ID: id + "-m"})
	}
	return e
}

func TestCatalogRefresh(t *testing.T) {
	ctx := context.Background()

	Convey("Given a catalog over a mutable source", t, func() {
		var (
			next []model.Event
			fail error
		)
		src := catalog.SourceFunc(func(context.Context) ([]model.Event, error) {
			return next, fail
		})
		c, err := catalog.New(src)
		So(err, ShouldBeNil)

		Convey("Unusable and repeated events are dropped", func() {
			next = []model.Event{
				ev("a", "Alpha", 1),
				ev("b", "", 2),
				ev("c", "Gamma", 0),
				ev("a", "Alpha again", 1),
				ev("", "No id", 1),
				ev("d", "Delta", 3),
			}
			So(c.Refresh(ctx), ShouldBeNil)
			got := c.Events()
			So(len(got), ShouldEqual, 2)
			So(got[0].ID, ShouldEqual, "a")
			So(got[0].Title, ShouldEqual, "Alpha")
			So(got[1].ID, ShouldEqual, "d")
			So(c.Len(), ShouldEqual, 2)

			when, lastErr := c.Status()
			So(when.IsZero(), ShouldBeFalse)
			So(lastErr, ShouldBeNil)

			Convey("A failing refresh keeps the previous list", func() {
				fail = errors.New("upstream down")
				err := c.Refresh(ctx)
				So(err, ShouldNotBeNil)
				So(errors.Is(err, fail), ShouldBeTrue)
				So(c.Len(), ShouldEqual, 2)
				_, lastErr := c.Status()
				So(lastErr, ShouldNotBeNil)
			})

			Convey("An empty refresh keeps the previous list", func() {
				next = []model.Event{ev("x", "", 1)}
				So(errors.Is(c.Refresh(ctx), catalog.ErrNoEvents), ShouldBeTrue)
				So(c.Len(), ShouldEqual, 2)
			})

			Convey("Ids seen in an earlier refresh are accepted again", func() {
				next = []model.Event{ev("a", "Alpha", 1)}
				So(c.Refresh(ctx), ShouldBeNil)
				So(c.Len(), ShouldEqual, 1)
			})
		})

		Convey("The returned list is a copy", func() {
			next = []model.Event{ev("a", "Alpha", 1)}
			So(c.Refresh(ctx), ShouldBeNil)
			got := c.Events()
			got[0].Title = "changed"
			So(c.Events()[0].Title, ShouldEqual, "Alpha")
		})
	})

	Convey("Given a capped catalog", t, func() {
		src := catalog.SourceFunc(func(context.Context) ([]model.Event, error) {
			return []model.Event{ev("a", "A", 1), ev("b", "B", 1), ev("c", "C", 1)}, nil
		})
		c, err := catalog.New(src, catalog.WithMaxEvents(2))
		So(err, ShouldBeNil)
		So(c.Refresh(ctx), ShouldBeNil)
		So(c.Len(), ShouldEqual, 2)
	})

	Convey("Given a capped catalog with a deduper bounded to the cap", t, func() {
		next := []model.Event{ev("a", "A", 1), ev("a", "A again", 1), ev("b", "B", 1), ev("c", "C", 1), ev("a", "A late", 1), ev("d", "D", 1)}
		src := catalog.SourceFunc(func(context.Context) ([]model.Event, error) {
			return next, nil
		})
		c, err := catalog.New(src,
			catalog.WithMaxEvents(2),
			catalog.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))),
		)
		So(err, ShouldBeNil)

		Convey("The first distinct events are kept and later ones capped", func() {
			So(c.Refresh(ctx), ShouldBeNil)
			got := c.Events()
			So(len(got), ShouldEqual, 2)
			So(got[0].ID, ShouldEqual, "a")
			So(got[0].Title, ShouldEqual, "A")
			So(got[1].ID, ShouldEqual, "b")

			Convey("A later refresh starts from an empty window", func() {
				next = []model.Event{ev("c", "C", 1), ev("c", "C again", 1), ev("d", "D", 1), ev("e", "E", 1)}
				So(c.Refresh(ctx), ShouldBeNil)
				got := c.Events()
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldEqual, "c")
				So(got[0].Title, ShouldEqual, "C")
				So(got[1].ID, ShouldEqual, "d")
			})
		})
	})

	Convey("A nil source is refused", t, func() {
		_, err := catalog.New(nil)
		So(errors.Is(err, catalog.ErrNilSource), ShouldBeTrue)
	})
}

func TestCatalogRun(t *testing.T) {
	Convey("Given a catalog refreshed in the background", t, func() {
		var calls atomic.Int32
		src := catalog.SourceFunc(func(context.Context) ([]model.Event, error) {
			calls.Add(1)
			return []model.Event{ev("a", "A", 1)}, nil
		})
		c, err := catalog.New(src, catalog.WithRefreshTimeout(time.Second))
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			c.Run(ctx, 5*time.Millisecond)
			close(done)
		}()

		deadline := time.Now().Add(2 * time.Second)
		for calls.Load() < 2 && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		cancel()
		<-done

		So(calls.Load(), ShouldBeGreaterThanOrEqualTo, 2)
		So(c.Len(), ShouldEqual, 1)
	})

	Convey("A non-positive interval returns at once", t, func() {
		c, err := catalog.New(catalog.SourceFunc(func(context.Context) ([]model.Event, error) { return nil, nil }))
		So(err, ShouldBeNil)
		c.Run(context.Background(), 0)
	})
}
