// Package codec serializes cached values before they reach a backend.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrInvalidDestination is returned when decoding into something that is not a non-nil pointer.
	ErrInvalidDestination = errors.New("codec: destination must be a non-nil pointer")
	// ErrUnknownCodec is returned by ByName.
	ErrUnknownCodec = errors.New("codec: unknown codec")
)

type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, dst any) error
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// ByName returns the codec registered under name ("json" or "msgpack").
func ByName(name string) (Codec, error) {
	switch name {
	case "", JSON.Name():
		return JSON, nil
	case Msgpack.Name():
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// CheckDestination fails with ErrInvalidDestination unless dst is a non-nil pointer.
func CheckDestination(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w, got %T", ErrInvalidDestination, dst)
	}
	return nil
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, dst any) error {
	if err := CheckDestination(dst); err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(data []byte, dst any) error {
	if err := CheckDestination(dst); err != nil {
		return err
	}
	return msgpack.Unmarshal(data, dst)
}
