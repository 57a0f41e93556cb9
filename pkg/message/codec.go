package message

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/grovetools/feed/errors"
)

// Envelope is the wire shape of every frame.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode renders m as an envelope.
func Encode(m Message) ([]byte, error) {
	var payload any
	switch v := m.(type) {
	case NewPost:
		payload = v.Post
	case Ping:
		return json.Marshal(Envelope{Type: KindPing})
	default:
		payload = v
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", m.Kind(), err)
	}
	return json.Marshal(Envelope{Type: m.Kind(), Payload: raw})
}

// Decode parses a frame. Frames with an unrecognized type return an
// UNKNOWN_MESSAGE_TYPE error; anything else that fails to parse returns
// MALFORMED_MESSAGE.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.MalformedMessage(err)
	}
	if env.Type == "" {
		return nil, errors.MalformedMessage(fmt.Errorf("missing type"))
	}

	switch env.Type {
	case KindNewPost:
		var m NewPost
		if err := decodePayload(env, &m.Post); err != nil {
			return nil, err
		}
		if m.Post.ID == "" {
			return nil, errors.MalformedMessage(fmt.Errorf("new_post without id")).
				WithDetail("type", string(env.Type))
		}
		return m, nil
	case KindUserOnline:
		var m UserOnline
		if err := decodeUser(env, &m, &m.UserID); err != nil {
			return nil, err
		}
		return m, nil
	case KindUserOffline:
		var m UserOffline
		if err := decodeUser(env, &m, &m.UserID); err != nil {
			return nil, err
		}
		return m, nil
	case KindTypingStart:
		var m TypingStart
		if err := decodeUser(env, &m, &m.UserID); err != nil {
			return nil, err
		}
		return m, nil
	case KindTypingStop:
		var m TypingStop
		if err := decodeUser(env, &m, &m.UserID); err != nil {
			return nil, err
		}
		return m, nil
	case KindNotification:
		var m Notification
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case KindPing:
		return Ping{}, nil
	default:
		return nil, errors.UnknownMessageType(string(env.Type))
	}
}

func decodePayload(env Envelope, target any) error {
	payload := bytes.TrimSpace(env.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return errors.MalformedMessage(fmt.Errorf("missing payload")).
			WithDetail("type", string(env.Type))
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return errors.MalformedMessage(err).WithDetail("type", string(env.Type))
	}
	return nil
}

func decodeUser(env Envelope, target any, userID *string) error {
	if err := decodePayload(env, target); err != nil {
		return err
	}
	if *userID == "" {
		return errors.MalformedMessage(fmt.Errorf("missing userId")).
			WithDetail("type", string(env.Type))
	}
	return nil
}
