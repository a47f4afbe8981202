package snapshot

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/movementcontrol/internal/domain"
)

func sampleList() ListSnapshot {
	return CaptureList(domain.MovementList{
		ScheduledDatetime: time.Date(2024, 1, 10, 8, 30, 15, 123456789, time.FixedZone("MSK", 3*60*60)),
		Watch:             "Вахта №2",
		Place:             "КПП-1",
	})
}

func sampleEntry() EntrySnapshot {
	return CaptureEntry(domain.Employee{PersonName: domain.PersonName{
		FirstName: "Иван",
		LastName:  "Иванов",
		Position:  "водитель",
	}})
}

// decoding an encoded snapshot gives back the same value
func TestRoundTrip(t *testing.T) {
	for _, s := range []Snapshot{sampleList(), sampleEntry(), ListSnapshot{}, EntrySnapshot{}} {
		data, err := Encode(s)
		require.NoError(t, err)

		decoded, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, s, decoded)
	}
}

// captured datetimes are normalised to UTC
func TestCaptureListUsesUTC(t *testing.T) {
	s := sampleList()
	assert.Equal(t, time.UTC, s.ScheduledDatetime.Location())
	assert.Equal(t, 5, s.ScheduledDatetime.Hour())
}

// the envelope names its variant and version
func TestEncodeEnvelope(t *testing.T) {
	data, err := Encode(sampleEntry())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "movement_entry", raw["kind"])
	assert.EqualValues(t, 1, raw["version"])
	assert.Equal(t, "водитель", raw["fields"].(map[string]any)["position"])
}

// values that cannot survive a round trip unchanged are refused
func TestEncodeRejectsLossyValues(t *testing.T) {
	local := ListSnapshot{ScheduledDatetime: time.Date(2024, 1, 10, 8, 0, 0, 0, time.FixedZone("PETT", 12*60*60))}
	_, err := Encode(local)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UTC")

	data, err := Encode(ListSnapshot{ScheduledDatetime: local.ScheduledDatetime.UTC()})
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, decoded.(ListSnapshot).ScheduledDatetime.Equal(local.ScheduledDatetime))

	_, err = Encode(EntrySnapshot{FirstName: "Иван", LastName: "\xc8\xe2\xe0\xed\xee\xe2", Position: "водитель"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last_name")

	_, err = Encode(ListSnapshot{Watch: "\xff"})
	assert.Error(t, err)
}

func TestEncodeNil(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}

// every corrupted form fails with a DecodeError and no partial value
func TestDecodeRejectsCorruptData(t *testing.T) {
	cases := map[string]string{
		"empty":            ``,
		"not json":         `<django-objects/>`,
		"truncated":        `{"kind":"movement_list","version":1,"fields":{"watch":"A"`,
		"unknown kind":     `{"kind":"facility","version":1,"fields":{}}`,
		"bad version":      `{"kind":"movement_entry","version":2,"fields":{"first_name":"a","last_name":"b","patronymic":"","position":"c"}}`,
		"missing fields":   `{"kind":"movement_entry","version":1}`,
		"missing field":    `{"kind":"movement_entry","version":1,"fields":{"first_name":"a","last_name":"b","position":"c"}}`,
		"unknown field":    `{"kind":"movement_entry","version":1,"fields":{"first_name":"a","last_name":"b","patronymic":"","position":"c","salary":"1"}}`,
		"unknown envelope": `{"kind":"movement_entry","version":1,"fields":{},"extra":true}`,
		"bad datetime":     `{"kind":"movement_list","version":1,"fields":{"scheduled_datetime":"yesterday","watch":"","place":""}}`,
		"wrong type":       `{"kind":"movement_list","version":1,"fields":{"scheduled_datetime":"2024-01-10T05:00:00Z","watch":1,"place":""}}`,
		"trailing data":    `{"kind":"movement_list","version":1,"fields":{"scheduled_datetime":"2024-01-10T05:00:00Z","watch":"","place":""}} {}`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := Decode([]byte(input))
			assert.Nil(t, s)

			var decodeErr *DecodeError
			assert.True(t, errors.As(err, &decodeErr), "expected DecodeError, got %v", err)
		})
	}
}

func TestDecodeAs(t *testing.T) {
	data, err := Encode(sampleList())
	require.NoError(t, err)

	list, err := DecodeAs[ListSnapshot](data)
	require.NoError(t, err)
	assert.Equal(t, sampleList(), list)

	_, err = DecodeAs[EntrySnapshot](data)
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestKindFor(t *testing.T) {
	kind, err := KindFor(domain.KindMovementList)
	require.NoError(t, err)
	assert.Equal(t, KindList, kind)

	kind, err = KindFor(domain.KindMovementEntry)
	require.NoError(t, err)
	assert.Equal(t, KindEntry, kind)

	_, err = KindFor(domain.KindFacility)
	assert.Error(t, err)
}
