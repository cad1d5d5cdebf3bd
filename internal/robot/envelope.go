// Package robot talks to a Go2 robot over its WebRTC datachannel.
package robot

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Datachannel message types.
const (
	msgValidation = "validation"
	msgRequest    = "req"
	msgResponse   = "res"
	msgMessage    = "msg"
	msgSubscribe  = "subscribe"
	msgUnsub      = "unsubscribe"
	msgHeartbeat  = "heartbeat"
	msgVideo      = "vid"
	msgErrors     = "errors"
)

// validationOK is the payload the robot sends once the key reply is accepted.
const validationOK = "Validation Ok."

// Response is a decoded "res" message.
type Response struct {
	Topic string
	ID    int64
	APIID int
	Code  int
	// Data is the raw "data.data" payload, usually a JSON document encoded as a string.
	Data string
}

// frame is the routing part of an inbound message.
type frame struct {
	Type  string
	Topic string
	ID    int64
	Data  gjson.Result
}

// parseFrame extracts routing fields from a raw datachannel message.
func parseFrame(raw []byte) (frame, error) {
	if !gjson.ValidBytes(raw) {
		return frame{}, fmt.Errorf("invalid frame: %q", truncate(raw, 64))
	}
	res := gjson.ParseBytes(raw)
	return frame{
		Type:  res.Get("type").String(),
		Topic: res.Get("topic").String(),
		ID:    res.Get("data.header.identity.id").Int(),
		Data:  res.Get("data"),
	}, nil
}

// parseResponse decodes the data section of a "res" frame.
func parseResponse(f frame) Response {
	return Response{
		Topic: f.Topic,
		ID:    f.ID,
		APIID: int(f.Data.Get("header.identity.api_id").Int()),
		Code:  int(f.Data.Get("header.status.code").Int()),
		Data:  f.Data.Get("data").String(),
	}
}

// buildRequest encodes a request envelope. param may be nil, a string, or any JSON-encodable value.
func buildRequest(topic string, id int64, apiID int, param any) ([]byte, error) {
	out := []byte(`{"type":"req"}`)
	var err error
	if out, err = sjson.SetBytes(out, "topic", topic); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "data.header.identity.id", id); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "data.header.identity.api_id", apiID); err != nil {
		return nil, err
	}
	parameter, err := encodeParameter(param)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "data.parameter", parameter)
}

// encodeParameter renders a request parameter as the JSON string the firmware expects.
func encodeParameter(param any) (string, error) {
	switch p := param.(type) {
	case nil:
		return "", nil
	case string:
		return p, nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return "", fmt.Errorf("encode parameter: %w", err)
		}
		return string(data), nil
	}
}

// buildSimple encodes a message with a type, a topic, and an optional data value.
func buildSimple(msgType, topic string, data any) ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "type", msgType)
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "topic", topic); err != nil {
		return nil, err
	}
	if data == nil {
		return out, nil
	}
	return sjson.SetBytes(out, "data", data)
}

// validationReply derives the reply for a validation key.
func validationReply(key string) string {
	sum := md5.Sum([]byte("UnitreeGo2_" + key))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// truncate limits b to n bytes for log and error messages.
func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
