// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Envelope is a decoded response body. Entities keeps wire order: the
// installation response, for instance, is Id, Token, ServerPublicKey.
type Envelope struct {
	Entities   []Entity
	Pagination *Pagination
}

// Pagination holds the list navigation URLs bunq attaches to listings.
// Each is a path relative to the API root, or empty.
type Pagination struct {
	FutureURL string `json:"future_url"`
	NewerURL  string `json:"newer_url"`
	OlderURL  string `json:"older_url"`
}

type wireEnvelope struct {
	Response   []map[string]json.RawMessage `json:"Response"`
	Error      []wireError                  `json:"Error"`
	Pagination *Pagination                  `json:"Pagination"`
}

type wireError struct {
	ErrorDescription           string `json:"error_description"`
	ErrorDescriptionTranslated string `json:"error_description_translated"`
}

// DecodeEnvelope decodes a response body. An "Error" envelope becomes
// an *APIError; a malformed body becomes a *DecodeError. Element kinds
// without a Go type decode as *Unknown.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &DecodeError{Index: -1, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if len(wire.Error) > 0 {
		apiError := &APIError{}
		for _, entry := range wire.Error {
			apiError.Descriptions = append(apiError.Descriptions, entry.ErrorDescription)
		}
		return nil, apiError
	}
	if wire.Response == nil {
		return nil, &DecodeError{Index: -1, Reason: `no "Response" array`}
	}

	envelope := &Envelope{
		Entities:   make([]Entity, 0, len(wire.Response)),
		Pagination: wire.Pagination,
	}
	for index, element := range wire.Response {
		if len(element) != 1 {
			return nil, &DecodeError{Index: index, Reason: fmt.Sprintf("element has %d keys, want exactly 1", len(element))}
		}
		for kind, raw := range element {
			entity, err := decodeEntity(kind, raw)
			if err != nil {
				return nil, &DecodeError{Index: index, Kind: kind, Reason: err.Error()}
			}
			envelope.Entities = append(envelope.Entities, entity)
		}
	}
	return envelope, nil
}

func decodeEntity(kind string, raw json.RawMessage) (Entity, error) {
	constructor, known := entityKinds[kind]
	if !known {
		return &Unknown{Name: kind, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
	entity := constructor()
	if err := json.Unmarshal(raw, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// DecodeResponse decodes response.Body. A non-2xx status is always an
// error: the server's *APIError when the body carries one, otherwise an
// *APIError with the status alone. Signature verification is separate;
// see [Client.Verify].
func DecodeResponse(response *Response) (*Envelope, error) {
	envelope, err := DecodeEnvelope(response.Body)
	successful := response.StatusCode >= 200 && response.StatusCode < 300
	var apiError *APIError
	if errors.As(err, &apiError) {
		apiError.StatusCode = response.StatusCode
		return nil, apiError
	}
	if !successful {
		return nil, &APIError{StatusCode: response.StatusCode}
	}
	return envelope, err
}

// At returns the entity at index as a T. It fails with a *DecodeError
// when the envelope is shorter than index or the entity has another
// kind.
func At[T Entity](envelope *Envelope, index int) (T, error) {
	var zero T
	if index < 0 || index >= len(envelope.Entities) {
		return zero, &DecodeError{Index: index, Reason: fmt.Sprintf("envelope has %d entities", len(envelope.Entities))}
	}
	entity := envelope.Entities[index]
	typed, ok := entity.(T)
	if !ok {
		return zero, &DecodeError{Index: index, Kind: entity.Kind(), Reason: "entity is not a " + typeName[T]()}
	}
	return typed, nil
}

// Find returns the first entity that is a T.
func Find[T Entity](envelope *Envelope) (T, error) {
	for _, entity := range envelope.Entities {
		if typed, ok := entity.(T); ok {
			return typed, nil
		}
	}
	var zero T
	return zero, &DecodeError{Index: -1, Reason: "no " + typeName[T]() + " entity in envelope"}
}

// All returns every entity that is a T, in wire order.
func All[T Entity](envelope *Envelope) []T {
	var matches []T
	for _, entity := range envelope.Entities {
		if typed, ok := entity.(T); ok {
			matches = append(matches, typed)
		}
	}
	return matches
}

// typeName names T for error messages; %T on a nil interface value
// prints "<nil>".
func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
