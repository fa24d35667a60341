package engine

import (
	"context"

	"github.com/okian/randommarket/internal/domain/model"
)

// Listener receives engine notifications in order.
//
// Notify runs on engine goroutines while the engine holds the spin's
// emission lock. It must return quickly; hand slow work off to a queue.
// It may call Cancel or Close: the notification being delivered is then
// not passed on to the remaining listeners.
type Listener interface {
	Notify(ctx context.Context, n model.Notification)
}

// Callbacks adapts the onTick / onComplete style to Listener.
// Nil hooks are skipped.
type Callbacks struct {
	OnStart    func(spinID string, workingList []model.Event)
	OnTick     func(spinID string, tick model.Tick)
	OnComplete func(result model.SpinResult)
	OnCancel   func(spinID string)
}

// Notify dispatches n to the matching hook.
func (c Callbacks) Notify(_ context.Context, n model.Notification) {
	switch n.Kind {
	case model.KindStarted:
		if c.OnStart != nil {
			c.OnStart(n.SpinID, n.WorkingList)
		}
	case model.KindTick:
		if c.OnTick != nil && n.Tick != nil {
			c.OnTick(n.SpinID, *n.Tick)
		}
	case model.KindCompleted:
		if c.OnComplete != nil && n.Result != nil {
			c.OnComplete(*n.Result)
		}
	case model.KindCancelled:
		if c.OnCancel != nil {
			c.OnCancel(n.SpinID)
		}
	}
}
