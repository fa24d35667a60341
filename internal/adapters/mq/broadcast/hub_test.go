package broadcast_test

import (
	"context"
	"testing"

	"github.com/okian/randommarket/internal/adapters/mq/broadcast"
	"github.com/okian/randommarket/internal/adapters/mq/queue"
	"github.com/okian/randommarket/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func note(kind model.NotificationKind, step int) model.Notification {
	return model.Notification{Kind: kind, SpinID: "s", Tick: &model.Tick{Step: step}}
}

func TestHub(t *testing.T) {
	Convey("Given a hub with two subscribers", t, func() {
		h := broadcast.NewHub(broadcast.WithSubscriberBuffer(4))
		all := h.Subscribe()
		done := h.Subscribe(model.KindCompleted, model.KindCancelled)
		So(h.Count(), ShouldEqual, 2)
		So(all.ID, ShouldNotEqual, done.ID)

		Convey("Notifications reach subscribers that asked for their kind", func() {
			h.Publish(note(model.KindTick, 0))
			So(h.Handle(context.Background(), queue.Envelope{Notification: note(model.KindCompleted, 1)}), ShouldBeNil)

			So((<-all.C).Kind, ShouldEqual, model.KindTick)
			So((<-all.C).Kind, ShouldEqual, model.KindCompleted)
			So((<-done.C).Kind, ShouldEqual, model.KindCompleted)
			So(len(done.C), ShouldEqual, 0)
		})

		Convey("A full subscriber misses notifications without blocking others", func() {
			for i := range 6 {
				h.Publish(note(model.KindTick, i))
			}
			So(len(all.C), ShouldEqual, 4)
			for i := range 4 {
				So((<-all.C).Tick.Step, ShouldEqual, i)
			}
		})

		Convey("Unsubscribe closes the channel", func() {
			h.Unsubscribe(all.ID)
			_, ok := <-all.C
			So(ok, ShouldBeFalse)
			So(h.Count(), ShouldEqual, 1)
			h.Unsubscribe(all.ID)
			h.Unsubscribe("unknown")
			So(h.Count(), ShouldEqual, 1)
		})

		Convey("Close closes every channel", func() {
			h.Close()
			_, ok := <-all.C
			So(ok, ShouldBeFalse)
			_, ok = <-done.C
			So(ok, ShouldBeFalse)
			So(h.Count(), ShouldEqual, 0)

			Convey("and later subscribers get a closed channel", func() {
				late := h.Subscribe()
				_, ok := <-late.C
				So(ok, ShouldBeFalse)
				h.Publish(note(model.KindTick, 0))
				h.Close()
			})
		})
	})
}
