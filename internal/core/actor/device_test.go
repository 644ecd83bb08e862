package actor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/berfenger/solarpoll/internal/core/domain"
	"github.com/berfenger/solarpoll/internal/core/service"
	"github.com/berfenger/solarpoll/internal/util/actorutil"
	rm "github.com/berfenger/solarpoll/pkg/register_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingReader holds every cycle until release is closed.
type blockingReader struct {
	release chan struct{}
	last    domain.Reading
}

func (r *blockingReader) RunCycle(ctx context.Context) (domain.Reading, error) {
	<-r.release
	return r.last, nil
}

func (r *blockingReader) LastReading() domain.Reading {
	return r.last
}

func (r *blockingReader) State() domain.CycleState {
	return domain.CycleStateReading
}

func (r *blockingReader) Close() error {
	return nil
}

// slowTransport delays every block read.
type slowTransport struct {
	*rm.TestTransport
	delay time.Duration
}

func (t slowTransport) ReadBlock(address uint16, wordCount uint16) ([]uint16, error) {
	time.Sleep(t.delay)
	return t.TestTransport.ReadBlock(address, wordCount)
}

func newTestDeviceReader(transport *rm.TestTransport, logger *zap.Logger) *service.DeviceReaderService {
	return service.NewDeviceReaderService(transport, rm.DefaultRegisterMap(), rm.NewDecoder(rm.EndianConfig{}), logger)
}

func subscribeReadings(es *eventstream.EventStream) (chan domain.Reading, *eventstream.Subscription) {
	readings := make(chan domain.Reading, 16)
	sub := es.Subscribe(func(evt any) {
		if ev, ok := evt.(domain.ReadingUpdatedEvent); ok {
			readings <- ev.Reading
		}
	})
	return readings, sub
}

func TestDeviceActorInitialCycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	es := &eventstream.EventStream{}
	readings, sub := subscribeReadings(es)
	defer es.Unsubscribe(sub)

	transport := rm.CreateTestInverterTransport()
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceActor(newTestDeviceReader(transport, logger), es, 2*time.Second, logger)
	}))
	defer context.Stop(pid)

	select {
	case r := <-readings:
		assert.InDelta(12.345, r.TotalEnergyProducedKWh, 1e-9)
		assert.InDelta(6.2, r.CurrentPowerConsumedTotalKW, 1e-9)
	case <-time.After(3 * time.Second):
		t.Fatal("no reading published")
	}

	res, err := context.RequestFuture(pid, domain.GetLastReadingRequest{}, time.Second).Result()
	require.NoError(err)
	last, ok := res.(domain.GetLastReadingResponse)
	require.True(ok)
	assert.InDelta(12.345, last.Reading.TotalEnergyProducedKWh, 1e-9)
	assert.Equal(domain.CycleStateDone, last.State)

	res, err = context.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(err)
	health, ok := res.(domain.ActorHealthResponse)
	require.True(ok)
	assert.True(health.Healthy)
	assert.Equal(domain.ACTOR_ID_DEVICE, health.Id)
}

func TestDeviceActorRunCycleRequest(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	transport := rm.CreateTestInverterTransport()
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceActor(newTestDeviceReader(transport, logger), &eventstream.EventStream{}, 2*time.Second, logger)
	}))
	defer context.Stop(pid)

	// stashed behind the initial cycle if that one is still running
	res, err := context.RequestFuture(pid, domain.RunCycleRequest{}, 3*time.Second).Result()
	require.NoError(err)
	resp, ok := res.(domain.RunCycleResponse)
	require.True(ok)
	assert.NoError(resp.GetResponseError())
	assert.InDelta(5.0, resp.Reading.CurrentPowerProducedKW, 1e-9)
	assert.Equal(1, transport.ConnectCalls())
}

func TestDeviceActorFailedCycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	es := &eventstream.EventStream{}
	readings, sub := subscribeReadings(es)
	defer es.Unsubscribe(sub)

	transport := rm.CreateTestInverterTransport()
	transport.FailConnect(errors.New("refused"))
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceActor(newTestDeviceReader(transport, logger), es, 2*time.Second, logger)
	}))
	defer context.Stop(pid)

	res, err := context.RequestFuture(pid, domain.RunCycleRequest{}, 3*time.Second).Result()
	require.NoError(err)
	resp, ok := res.(domain.RunCycleResponse)
	require.True(ok)
	assert.ErrorIs(resp.GetResponseError(), rm.ErrConnection)
	assert.Equal(domain.Reading{}, resp.Reading)

	res, err = context.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(err)
	health, ok := res.(domain.ActorHealthResponse)
	require.True(ok)
	assert.False(health.Healthy)
	assert.Equal(string(domain.CycleStateError), health.State)

	// failed cycles publish nothing
	assert.Len(readings, 0)

	// next cycle succeeds and health recovers
	transport.FailConnect(nil)
	res, err = context.RequestFuture(pid, domain.RunCycleRequest{}, 3*time.Second).Result()
	require.NoError(err)
	assert.NoError(res.(domain.RunCycleResponse).GetResponseError())

	res, err = context.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(err)
	assert.True(res.(domain.ActorHealthResponse).Healthy)
}

func TestDeviceActorAnswersWhileCycleRuns(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	reader := &blockingReader{
		release: make(chan struct{}),
		last:    domain.Reading{TotalEnergyProducedKWh: 1.5},
	}
	defer close(reader.release)

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceActor(reader, &eventstream.EventStream{}, 300*time.Millisecond, logger)
	}))
	defer context.Stop(pid)

	// initial cycle is blocked, queries still get through
	res, err := context.RequestFuture(pid, domain.GetLastReadingRequest{}, 200*time.Millisecond).Result()
	require.NoError(err)
	last := res.(domain.GetLastReadingResponse)
	assert.InDelta(1.5, last.Reading.TotalEnergyProducedKWh, 1e-9)
	assert.Equal(domain.CycleStateReading, last.State)

	// the blocked cycle times out
	res, err = context.RequestFuture(pid, domain.RunCycleRequest{}, 2*time.Second).Result()
	require.NoError(err)
	assert.Error(res.(domain.RunCycleResponse).GetResponseError())
}

func TestDeviceActorCycleTimeoutKeepsLastReading(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	es := &eventstream.EventStream{}
	readings, sub := subscribeReadings(es)
	defer es.Unsubscribe(sub)

	transport := rm.CreateTestInverterTransport()
	reader := service.NewDeviceReaderService(slowTransport{transport, 40 * time.Millisecond},
		rm.DefaultRegisterMap(), rm.NewDecoder(rm.EndianConfig{}), logger)
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceActor(reader, es, 100*time.Millisecond, logger)
	}))
	defer context.Stop(pid)

	res, err := context.RequestFuture(pid, domain.RunCycleRequest{}, 3*time.Second).Result()
	require.NoError(err)
	assert.Error(res.(domain.RunCycleResponse).GetResponseError())

	// nothing from the timed out cycles shows up later
	time.Sleep(500 * time.Millisecond)
	assert.Equal(domain.Reading{}, reader.LastReading())
	assert.Equal(domain.CycleStateError, reader.State())
	assert.Len(readings, 0)

	res, err = context.RequestFuture(pid, domain.GetLastReadingRequest{}, time.Second).Result()
	require.NoError(err)
	assert.Equal(domain.Reading{}, res.(domain.GetLastReadingResponse).Reading)

	res, err = context.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(err)
	assert.False(res.(domain.ActorHealthResponse).Healthy)
}
