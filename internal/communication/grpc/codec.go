package grpccomm

import (
	"encoding/json"

	"github.com/AnishMulay/memscope/internal/communication"
	"google.golang.org/protobuf/types/known/structpb"
)

func eventToStruct(event communication.Event) (*structpb.Struct, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, communication.ErrEventMarshalFailed
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, communication.ErrEventMarshalFailed
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, communication.ErrEventMarshalFailed
	}
	return s, nil
}

func structToEvent(s *structpb.Struct) (communication.Event, error) {
	var event communication.Event
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return event, err
	}
	err = json.Unmarshal(data, &event)
	return event, err
}
