package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"registryScope/internal/model"
)

func TestJsonlWriterPutEventBatch(t *testing.T) {
	var buf bytes.Buffer
	var sink EventSink = NewJsonlWriter(&buf)

	batch := []model.EventRecord{
		{BlockNumber: 1, EventName: "Registered", Decoded: json.RawMessage(`{"id":"1"}`)},
		{BlockNumber: 2, EventName: "Unregistered", Decoded: json.RawMessage(`{"id":"1"}`)},
	}
	if err := sink.PutEventBatch(batch); err != nil {
		t.Fatalf("put batch: %v", err)
	}
	if err := sink.PutEventBatch(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	var got []model.EventRecord
	for scanner.Scan() {
		var rec model.EventRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line is not json: %v", err)
		}
		got = append(got, rec)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[0].BlockNumber != 1 || got[1].EventName != "Unregistered" {
		t.Fatalf("unexpected lines: %+v", got)
	}
}

func TestJsonlWriterPut(t *testing.T) {
	var buf bytes.Buffer
	w := NewJsonlWriter(&buf)

	if err := w.Put(model.StatsView{NumRecords: "3", MaxID: "7"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	want := `{"contract":"","num_records":"3","max_id":"7"}` + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
