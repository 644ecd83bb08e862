package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/solarpoll/internal/core/domain"
	"github.com/berfenger/solarpoll/internal/core/port"
	"github.com/berfenger/solarpoll/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// DeviceActor owns the device reader. Cycles run in the background, one at a
// time, while health and last-reading queries keep being answered.
type DeviceActor struct {
	behavior     actor.Behavior
	stash        *actorutil.Stash
	reader       port.DeviceReader
	eventStream  *eventstream.EventStream
	cycleTimeout time.Duration

	replyTo         *actor.PID
	initial         bool
	lastCycleFailed bool

	logger *zap.Logger
}

type cycleResult struct {
	reading domain.Reading
	err     error
}

func NewDeviceActor(reader port.DeviceReader, eventStream *eventstream.EventStream, cycleTimeout time.Duration, logger *zap.Logger) *DeviceActor {
	act := &DeviceActor{
		behavior:     actor.NewBehavior(),
		stash:        &actorutil.Stash{},
		reader:       reader,
		eventStream:  eventStream,
		cycleTimeout: cycleTimeout,
		logger:       actorutil.ActorLogger(domain.ACTOR_ID_DEVICE, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *DeviceActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DeviceActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("device@default started")
		// initial update
		state.initial = true
		ctx.Send(ctx.Self(), domain.RunCycleRequest{})
	case *actor.Stopping:
		state.stop()
	case *actor.Restarting:
		state.stop()
	case domain.ActorHealthRequest:
		state.respondHealth(ctx)
	case domain.GetLastReadingRequest:
		state.respondLastReading(ctx, msg)
	case domain.RunCycleRequest:
		state.logger.Debug("device@default RunCycleRequest")
		state.replyTo = actorutil.ForRequest(msg).ReplyTo(ctx)
		state.runCycle(ctx)
		state.behavior.BecomeStacked(state.WaitingCycleReceive)
	default:
		state.logger.Debug("device@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DeviceActor) WaitingCycleReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case cycleResult:
		state.onCycleResult(ctx, msg)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		state.respondHealth(ctx)
	case domain.GetLastReadingRequest:
		state.respondLastReading(ctx, msg)
	case *actor.Stopping:
		state.stop()
	default:
		state.stash.Stash(ctx, msg)
		state.logger.Debug("device@cycle stash", zap.String("type", fmt.Sprintf("%T", msg)), zap.Int("pending", state.stash.Len()))
	}
}

// runCycle gives the reader a deadline of cycleTimeout. A reader past its
// deadline drops the cycle without publishing, so the task timeout is only a
// backstop for readers stuck in I/O and is set past the point where any single
// request has timed out.
func (state *DeviceActor) runCycle(ctx actor.Context) {
	reader := state.reader
	timeout := state.cycleTimeout
	actorutil.NewBackgroundTask(ctx, func() (*cycleResult, error) {
		cycleCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		reading, err := reader.RunCycle(cycleCtx)
		return &cycleResult{reading: reading, err: err}, nil
	}).WithTimeout(2 * timeout).Recover(func(err error) cycleResult {
		return cycleResult{reading: reader.LastReading(), err: err}
	}).PipeTo(ctx.Self())
}

func (state *DeviceActor) onCycleResult(ctx actor.Context, res cycleResult) {
	initial := state.initial
	state.initial = false
	state.lastCycleFailed = res.err != nil

	if res.err != nil {
		if initial {
			state.logger.Warn("device: initial update failed", zap.Error(res.err))
		} else {
			state.logger.Error("device: cycle failed", zap.Error(res.err))
		}
	} else {
		if initial {
			state.logger.Info("device: initial update succeeded")
		}
		state.eventStream.Publish(domain.ReadingUpdatedEvent{Reading: res.reading})
	}

	if state.replyTo != nil {
		ctx.Send(state.replyTo, domain.RunCycleResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: res.err,
			},
			Reading: res.reading,
		})
		state.replyTo = nil
	}
}

func (state *DeviceActor) respondHealth(ctx actor.Context) {
	state.logger.Debug("device ActorHealthRequest")
	ctx.Respond(domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_DEVICE,
		Healthy: !state.lastCycleFailed,
		State:   string(state.reader.State()),
	})
}

func (state *DeviceActor) respondLastReading(ctx actor.Context, req domain.GetLastReadingRequest) {
	actorutil.ForRequest(req).Respond(ctx, domain.GetLastReadingResponse{
		Reading: state.reader.LastReading(),
		State:   state.reader.State(),
	})
}

func (state *DeviceActor) stop() {
	state.logger.Debug("device: close")
	if err := state.reader.Close(); err != nil {
		state.logger.Warn("device: close failed", zap.Error(err))
	}
}

