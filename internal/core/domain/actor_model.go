package domain

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_DEVICE       = "device"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type RunCycleRequest struct {
	ActorRequestMixIn
}

type RunCycleResponse struct {
	ActorResponseMixIn
	Reading Reading
}

type GetLastReadingRequest struct {
	ActorRequestMixIn
}

type GetLastReadingResponse struct {
	ActorResponseMixIn
	Reading Reading
	State   CycleState
}

// ReadingUpdatedEvent is published on the event stream after every successful cycle.
type ReadingUpdatedEvent struct {
	Reading Reading
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
	Buttons []GenericButton
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
