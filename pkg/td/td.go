// Package td describes the messages exchanged with the messaging engine and the
// messages the client synthesizes for itself. Every message is a tagged object whose
// @type field names its variant.
package td

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Object is any tagged message.
type Object interface {
	Type() string
}

// Request is a message sent to the engine.
//
//sumtype:decl
type Request interface {
	Object
	isRequest()
}

// Response is a message the engine sends back as the result of a Request.
//
//sumtype:decl
type Response interface {
	Object
	isResponse()
}

// Update is a message pushed by the engine on its own.
//
//sumtype:decl
type Update interface {
	Object
	isUpdate()
}

// ClientUpdate is a message synthesized by the client for local coordination.
// Client updates never leave the process.
//
//sumtype:decl
type ClientUpdate interface {
	Object
	isClientUpdate()
}

// Int64 is a 64-bit identifier. The engine encodes them as JSON strings to survive
// double precision parsers, but numbers are accepted too.
type Int64 int64

func (i Int64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(i), 10))), nil
}

func (i *Int64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parsing int64 %q: %w", data, err)
	}

	*i = Int64(v)
	return nil
}
