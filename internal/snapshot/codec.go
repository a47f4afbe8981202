package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"
)

// DecodeError reports a stored snapshot that cannot be restored.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode snapshot: %s: %v", e.Reason, e.Err)
	}
	return "decode snapshot: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

type envelope struct {
	Kind    Kind            `json:"kind"`
	Version int             `json:"version"`
	Fields  json.RawMessage `json:"fields"`
}

type listFields struct {
	ScheduledDatetime *string `json:"scheduled_datetime"`
	Watch             *string `json:"watch"`
	Place             *string `json:"place"`
}

type entryFields struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Patronymic *string `json:"patronymic"`
	Position   *string `json:"position"`
}

// Encode writes the snapshot as {"kind":...,"version":1,"fields":{...}}.
// Snapshots that would not decode back to an identical value are rejected:
// list datetimes must be in UTC and every text field must be valid UTF-8.
func Encode(s Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("encode snapshot: nil snapshot")
	}
	for _, f := range s.Fields() {
		if !utf8.ValidString(f.Value) {
			return nil, fmt.Errorf("encode snapshot: %s is not valid UTF-8", f.Name)
		}
	}

	var fields any
	switch typed := s.(type) {
	case ListSnapshot:
		if typed.ScheduledDatetime.Location() != time.UTC {
			return nil, fmt.Errorf("encode snapshot: scheduled_datetime in %s, want UTC", typed.ScheduledDatetime.Location())
		}
		scheduled := formatTime(typed.ScheduledDatetime)
		fields = listFields{ScheduledDatetime: &scheduled, Watch: &typed.Watch, Place: &typed.Place}
	case EntrySnapshot:
		fields = entryFields{
			FirstName:  &typed.FirstName,
			LastName:   &typed.LastName,
			Patronymic: &typed.Patronymic,
			Position:   &typed.Position,
		}
	default:
		return nil, fmt.Errorf("encode snapshot: unsupported type %T", s)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot fields: %w", err)
	}
	data, err := json.Marshal(envelope{Kind: s.Kind(), Version: Version, Fields: raw})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot envelope: %w", err)
	}
	return data, nil
}

// Decode restores a snapshot written by Encode. Any defect in the blob yields a *DecodeError.
func Decode(data []byte) (Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DecodeError{Reason: "empty snapshot"}
	}

	var env envelope
	if err := strictUnmarshal(data, &env); err != nil {
		return nil, &DecodeError{Reason: "malformed envelope", Err: err}
	}
	if env.Version != Version {
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported version %d", env.Version)}
	}
	if len(env.Fields) == 0 || bytes.Equal(bytes.TrimSpace(env.Fields), []byte("null")) {
		return nil, &DecodeError{Reason: "missing fields"}
	}

	switch env.Kind {
	case KindList:
		return decodeList(env.Fields)
	case KindEntry:
		return decodeEntry(env.Fields)
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown kind %q", env.Kind)}
	}
}

// DecodeAs decodes data and asserts the expected variant.
func DecodeAs[T Snapshot](data []byte) (T, error) {
	var zero T
	s, err := Decode(data)
	if err != nil {
		return zero, err
	}
	typed, ok := s.(T)
	if !ok {
		return zero, &DecodeError{Reason: fmt.Sprintf("expected %T, found kind %q", zero, s.Kind())}
	}
	return typed, nil
}

func decodeList(raw json.RawMessage) (Snapshot, error) {
	var fields listFields
	if err := strictUnmarshal(raw, &fields); err != nil {
		return nil, &DecodeError{Reason: "malformed movement_list fields", Err: err}
	}
	if err := requireFields(map[string]*string{
		"scheduled_datetime": fields.ScheduledDatetime,
		"watch":              fields.Watch,
		"place":              fields.Place,
	}); err != nil {
		return nil, err
	}
	scheduled, err := time.Parse(time.RFC3339Nano, *fields.ScheduledDatetime)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid scheduled_datetime", Err: err}
	}
	return ListSnapshot{
		ScheduledDatetime: scheduled.UTC(),
		Watch:             *fields.Watch,
		Place:             *fields.Place,
	}, nil
}

func decodeEntry(raw json.RawMessage) (Snapshot, error) {
	var fields entryFields
	if err := strictUnmarshal(raw, &fields); err != nil {
		return nil, &DecodeError{Reason: "malformed movement_entry fields", Err: err}
	}
	if err := requireFields(map[string]*string{
		"first_name": fields.FirstName,
		"last_name":  fields.LastName,
		"patronymic": fields.Patronymic,
		"position":   fields.Position,
	}); err != nil {
		return nil, err
	}
	return EntrySnapshot{
		FirstName:  *fields.FirstName,
		LastName:   *fields.LastName,
		Patronymic: *fields.Patronymic,
		Position:   *fields.Position,
	}, nil
}

func requireFields(fields map[string]*string) error {
	for _, name := range sortedKeys(fields) {
		if fields[name] == nil {
			return &DecodeError{Reason: fmt.Sprintf("missing field %q", name)}
		}
	}
	return nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after snapshot")
	}
	return nil
}
