package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("wheel"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithDelayBuckets([]float64{10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.spinsStarted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_wheel_started_total"], ShouldBeTrue)
			})
		})

		Convey("When options get empty values they keep defaults", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)
			So(manager.namespace, ShouldEqual, "randommarket")
			So(manager.subsystem, ShouldEqual, "spin")
			So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Spin lifecycle recorders update counters", func() {
			started := testutil.ToFloat64(globalManager.spinsStarted)
			RecordSpinStarted(24)
			So(testutil.ToFloat64(globalManager.spinsStarted), ShouldEqual, started+1)
			So(testutil.ToFloat64(globalManager.spinActive), ShouldEqual, 1)
			So(testutil.ToFloat64(globalManager.workingList), ShouldEqual, 24)

			RecordSpinCompleted("evt-1", 13, 1.2)
			So(testutil.ToFloat64(globalManager.spinActive), ShouldEqual, 0)
			So(testutil.ToFloat64(globalManager.winsByEvent.WithLabelValues("evt-1")), ShouldBeGreaterThanOrEqualTo, 1)

			cancelled := testutil.ToFloat64(globalManager.spinsCancelled)
			RecordSpinCancelled()
			So(testutil.ToFloat64(globalManager.spinsCancelled), ShouldEqual, cancelled+1)
		})

		Convey("Remaining recorders do not panic", func() {
			So(func() {
				RecordSpinRejected("already_spinning")
				RecordTick(50)
				UpdateCatalogSize(10)
				RecordCatalogRefresh()
				RecordCatalogRefreshError()
				RecordCatalogDropped("duplicate", 2)
				RecordCatalogDropped("duplicate", 0)
				RecordSourceFallback()
				UpdateQueueSize(1)
				UpdateQueueCapacity(64)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueDropped()
				RecordDispatchLatency(0.4)
				UpdateSubscribers(3)
				RecordSubscriberDrop()
				UpdateHistory(5, 2)
				RecordHTTPRequest("/spins", "POST", "202")
				RecordHTTPRequestDuration("/spins", "POST", "202", 1.5)
				RecordErrorByComponent("engine", "already_spinning")
				RecordErrorByEndpoint("/spins", "POST", "conflict")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("The custom registry gathers", func() {
			_, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
		})
	})
}
