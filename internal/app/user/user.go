/*
Package user contains the identity types exchanged on the relay's socket protocol.

Clients identify users by opaque ids. The web client uses numeric database ids in some
events and strings in others, so both JSON forms decode into the same ID.
*/
package user

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is an opaque user identifier.
type ID string

// UnmarshalJSON accepts a JSON string or a JSON number. null decodes to "".
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ""
		return nil

	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("user id must be a string or a number: %w", err)
		}
		if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
			return fmt.Errorf("user id must be a string or a number: %w", err)
		}
		*id = ID(n.String())
		return nil
	}
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// User is the identity a sender attaches to signaling events so that the recipient
// can render it without a lookup.
type User struct {
	ID             ID     `json:"id"`
	Name           string `json:"name,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// UnmarshalJSON accepts either the object form or a bare id.
func (u *User) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '{' {
		type plain User
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*u = User(p)
		return nil
	}

	var id ID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*u = User{ID: id}
	return nil
}
