package simulate_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/okian/randommarket/internal/domain/schedule"
	"github.com/okian/randommarket/internal/simulate"
	"github.com/okian/randommarket/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWith(&bytes.Buffer{}, logger.FormatText); err != nil {
		panic(err)
	}
}

func TestChiSquare(t *testing.T) {
	Convey("Given winner counts", t, func() {
		So(simulate.ChiSquare([]int{10, 10, 10, 10}, 40), ShouldEqual, 0)
		So(simulate.ChiSquare([]int{20, 0}, 20), ShouldEqual, 20)
		So(simulate.ChiSquare(nil, 0), ShouldEqual, 0)
	})

	Convey("The critical value is close to the table", t, func() {
		So(simulate.CriticalValue(9), ShouldAlmostEqual, 27.877, 0.5)
		So(simulate.CriticalValue(23), ShouldAlmostEqual, 49.728, 0.5)
		So(simulate.CriticalValue(0), ShouldEqual, 0)
	})
}

func TestRunUniformity(t *testing.T) {
	Convey("Given ten synthetic events and a fixed seed", t, func() {
		ctx := context.Background()
		events := simulate.SyntheticEvents(10)
		cfg := &simulate.Config{
			Trials:          5000,
			Seed:            42,
			WorkingListSize: 24,
			Params:          schedule.DefaultParams(),
		}

		report, err := simulate.RunUniformity(ctx, cfg, events)
		So(err, ShouldBeNil)

		Convey("Every spin lands on its winner", func() {
			So(report.Violations, ShouldEqual, 0)
			total := 0
			for _, c := range report.Counts {
				total += c
			}
			So(total, ShouldEqual, 5000)
		})

		Convey("The winners pass the chi-square check", func() {
			So(report.ChiSquare, ShouldBeLessThan, report.Critical)
			So(report.Uniform, ShouldBeTrue)
		})
	})

	Convey("An empty catalog is refused", t, func() {
		_, err := simulate.RunUniformity(context.Background(), &simulate.Config{Trials: 1, Params: schedule.DefaultParams()}, nil)
		So(err, ShouldNotBeNil)
	})
}

func TestPrintSchedule(t *testing.T) {
	Convey("Given a 5 slot wheel landing on index 3", t, func() {
		var out bytes.Buffer
		So(simulate.PrintSchedule(&out, 5, 3, schedule.DefaultParams()), ShouldBeNil)
		text := out.String()
		So(text, ShouldContainSubstring, "14 ticks, min steps 10, total 3.38s")
		So(strings.Count(text, "\n"), ShouldBeGreaterThan, 14)
	})

	Convey("A bad winner index is an error", t, func() {
		So(simulate.PrintSchedule(&bytes.Buffer{}, 5, 7, schedule.DefaultParams()), ShouldNotBeNil)
	})
}

func TestRunModes(t *testing.T) {
	ctx := context.Background()

	Convey("Uniformity mode reads an events file", t, func() {
		var b strings.Builder
		b.WriteString("events:\n")
		for i := range 4 {
			fmt.Fprintf(&b, "  - id: \"e%d\"\n    title: \"Event %d\"\n    markets:\n      - id: \"m%d\"\n", i, i, i)
		}
		path := filepath.Join(t.TempDir(), "events.yaml")
		So(os.WriteFile(path, []byte(b.String()), 0o600), ShouldBeNil)

		var out bytes.Buffer
		err := simulate.Run(ctx, &simulate.Config{
			Mode:       simulate.ModeUniformity,
			EventsFile: path,
			Trials:     2000,
			Seed:       7,
			Params:     schedule.DefaultParams(),
		}, &out)
		So(err, ShouldBeNil)
		So(out.String(), ShouldContainSubstring, "2000 trials over 4 events")
		So(out.String(), ShouldContainSubstring, ": uniform")
	})

	Convey("Schedule mode prints the plan", t, func() {
		var out bytes.Buffer
		err := simulate.Run(ctx, &simulate.Config{Mode: simulate.ModeSchedule, Length: 24, Winner: 0, Params: schedule.DefaultParams()}, &out)
		So(err, ShouldBeNil)
		So(out.String(), ShouldContainSubstring, "49 ticks")
	})

	Convey("An unknown mode is an error", t, func() {
		So(simulate.Run(ctx, &simulate.Config{Mode: "dance"}, &bytes.Buffer{}), ShouldNotBeNil)
	})
}

func TestRunRemote(t *testing.T) {
	Convey("Given a fake spin server", t, func() {
		var (
			mu    sync.Mutex
			spins int
		)
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		mux.HandleFunc("/spins", func(w http.ResponseWriter, _ *http.Request) {
			mu.Lock()
			spins++
			id := fmt.Sprintf("spin-%d", spins)
			mu.Unlock()
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(map[string]any{"spin_id": id})
		})
		mux.HandleFunc("/spins/current", func(w http.ResponseWriter, _ *http.Request) {
			mu.Lock()
			id := fmt.Sprintf("spin-%d", spins)
			winner := fmt.Sprintf("e%d", spins%2)
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"state":   "completed",
				"spin_id": id,
				"result":  map[string]any{"winner": map[string]any{"id": winner}},
			})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		report, err := simulate.RunRemote(context.Background(), &simulate.Config{BaseURL: srv.URL, Spins: 4})
		So(err, ShouldBeNil)
		So(report.Completed, ShouldEqual, 4)
		So(report.Failed, ShouldEqual, 0)
		So(report.Winners["e0"], ShouldEqual, 2)
		So(report.Winners["e1"], ShouldEqual, 2)
	})

	Convey("An unreachable server fails the health check", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		_, err := simulate.RunRemote(context.Background(), &simulate.Config{BaseURL: srv.URL, Spins: 1})
		So(err, ShouldNotBeNil)
	})
}
