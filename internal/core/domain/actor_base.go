package domain

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorRequestMixIn lets a request name the actor that gets the response.
// When unset, the response goes back to the sender.
type ActorRequestMixIn struct {
	ReplyToPID *actor.PID
}

type ActorRequest interface {
	ReplyTo() *actor.PID
}

func (r ActorRequestMixIn) ReplyTo() *actor.PID {
	return r.ReplyToPID
}

// ActorResponseMixIn carries the error of a failed request, nil on success.
type ActorResponseMixIn struct {
	ResponseError error
}

type ActorResponse interface {
	GetResponseError() error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}
