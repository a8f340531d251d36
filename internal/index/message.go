package index

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Message is a broker message as stored by the server.
type Message struct {
	ID      uint64
	Payload string
	Headers []Header
}

// Header is one message header. Order within a message is significant.
type Header struct {
	Name  string
	Value HeaderValue
}

// HeaderValue is either a scalar or a nested object of scalar fields.
// Raw marks a scalar that is JSON text (number, bool, null, array) rather
// than a string.
type HeaderValue struct {
	Scalar string
	Raw    bool
	Fields []Field
	nested bool
}

// Field is a property of a nested header value.
type Field struct {
	Name  string
	Value string
	Raw   bool
}

// ScalarValue returns a scalar header value.
func ScalarValue(s string) HeaderValue {
	return HeaderValue{Scalar: s}
}

// NestedValue returns an object header value with fields in the given order.
func NestedValue(fields ...Field) HeaderValue {
	return HeaderValue{Fields: fields, nested: true}
}

// IsNested reports whether the value is an object.
func (v HeaderValue) IsNested() bool {
	return v.nested
}

// Lookup returns the first header with the given name.
func (m Message) Lookup(name string) (HeaderValue, bool) {
	for _, h := range m.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return HeaderValue{}, false
}

// DecodeMessages parses a JSON array of {id, payload, headers} objects.
func DecodeMessages(data []byte) ([]Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	result := gjson.ParseBytes(data)
	if !result.IsArray() {
		return nil, fmt.Errorf("expected array of messages, got %s", result.Type)
	}
	return decodeMessageArray(result), nil
}

// DecodeMessagesResult decodes an already parsed array of messages.
func DecodeMessagesResult(result gjson.Result) []Message {
	return decodeMessageArray(result)
}

func decodeMessageArray(result gjson.Result) []Message {
	messages := make([]Message, 0, len(result.Array()))
	result.ForEach(func(_, value gjson.Result) bool {
		messages = append(messages, decodeMessage(value))
		return true
	})
	return messages
}

func decodeMessage(obj gjson.Result) Message {
	msg := Message{
		ID:      obj.Get("id").Uint(),
		Payload: obj.Get("payload").String(),
	}
	// ForEach walks object keys in document order.
	obj.Get("headers").ForEach(func(key, value gjson.Result) bool {
		msg.Headers = append(msg.Headers, Header{
			Name:  key.String(),
			Value: decodeHeaderValue(value),
		})
		return true
	})
	return msg
}

func decodeHeaderValue(value gjson.Result) HeaderValue {
	if !value.IsObject() {
		text, raw := scalarText(value)
		return HeaderValue{Scalar: text, Raw: raw}
	}
	fields := []Field{}
	value.ForEach(func(key, v gjson.Result) bool {
		text, raw := scalarText(v)
		fields = append(fields, Field{Name: key.String(), Value: text, Raw: raw})
		return true
	})
	return NestedValue(fields...)
}

// scalarText renders strings unquoted and everything else as raw JSON.
func scalarText(v gjson.Result) (string, bool) {
	if v.Type == gjson.String {
		return v.Str, false
	}
	return v.Raw, true
}

// DecodeHeaders parses a JSON object into ordered headers.
func DecodeHeaders(data []byte) ([]Header, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid headers JSON")
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return nil, fmt.Errorf("expected headers object, got %s", obj.Type)
	}
	var headers []Header
	obj.ForEach(func(key, value gjson.Result) bool {
		headers = append(headers, Header{Name: key.String(), Value: decodeHeaderValue(value)})
		return true
	})
	return headers, nil
}

// EncodeHeaders renders headers as a JSON object keeping their order.
func EncodeHeaders(headers []Header) []byte {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, h := range headers {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeJSONString(&sb, h.Name)
		sb.WriteByte(':')
		if !h.Value.IsNested() {
			writeScalar(&sb, h.Value.Scalar, h.Value.Raw)
			continue
		}
		sb.WriteByte('{')
		for j, f := range h.Value.Fields {
			if j > 0 {
				sb.WriteByte(',')
			}
			writeJSONString(&sb, f.Name)
			sb.WriteByte(':')
			writeScalar(&sb, f.Value, f.Raw)
		}
		sb.WriteByte('}')
	}
	sb.WriteByte('}')
	return []byte(sb.String())
}

func writeScalar(sb *strings.Builder, s string, raw bool) {
	if raw && gjson.Valid(s) {
		sb.WriteString(s)
		return
	}
	writeJSONString(sb, s)
}

func writeJSONString(sb *strings.Builder, s string) {
	b, _ := json.Marshal(s)
	sb.Write(b)
}
