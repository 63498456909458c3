package queue

import (
	"encoding/json"

	"go.bryk.io/queue/errors"
)

// Codec (de)serializes the values carried through queue messages and
// overflow blobs. The default implementation uses JSON; callers can supply
// their own via WithCodec when a more compact wire format is required.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec returns the default, JSON based Codec.
func JSONCodec() Codec {
	return jsonCodec{}
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Queue payloads carry a single leading discriminator byte identifying the
// shape of what follows: either the caller's value serialized directly, or
// a wrapper pointing at an overflow blob. A tolerant codec like JSON can
// accidentally decode one shape as the other, so the discriminator removes
// any ambiguity instead of relying on a decode-then-retry approach.
const (
	discriminatorDirect  byte = 0x00
	discriminatorWrapper byte = 0x01
)

// marshalQueuePayload prefixes an already-serialized value with the
// direct-shape discriminator for queue delivery.
func marshalQueuePayload(body []byte) []byte {
	out := make([]byte, 1+len(body))
	out[0] = discriminatorDirect
	copy(out[1:], body)
	return out
}

// marshalWrapperPayload serializes a wrapper for queue delivery, prefixing
// it with the wrapper-shape discriminator.
func marshalWrapperPayload(codec Codec, w wrapper) ([]byte, error) {
	body, err := codec.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(err, "serialize overflow wrapper")
	}
	out := make([]byte, 1+len(body))
	out[0] = discriminatorWrapper
	copy(out[1:], body)
	return out, nil
}

// unmarshalQueuePayload inspects the leading discriminator of a raw queue
// payload and decodes either the caller's value or the overflow wrapper.
func unmarshalQueuePayload[T any](codec Codec, raw []byte) (value T, w wrapper, isWrapper bool, err error) {
	if len(raw) == 0 {
		err = errors.New("empty queue payload")
		return
	}

	disc, body := raw[0], raw[1:]
	switch disc {
	case discriminatorWrapper:
		if uerr := codec.Unmarshal(body, &w); uerr != nil {
			err = errors.Wrap(uerr, "deserialize overflow wrapper")
			return
		}
		isWrapper = true
		return
	case discriminatorDirect:
		if uerr := codec.Unmarshal(body, &value); uerr != nil {
			err = errors.Wrap(uerr, "deserialize message")
			return
		}
		return
	default:
		err = errors.Errorf("unrecognized queue payload discriminator: 0x%02x", disc)
		return
	}
}
