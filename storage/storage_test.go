package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenMemory()
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndQueryBySession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	usb := &USBIdentity{VID: "0403", PID: "6001", SerialNumber: "A7003abc"}
	id1, err := store.Insert(ctx, "usb:0403:6001:A7003abc", "sess-1", usb, "/dev/ttyUSB0", DirectionTX, []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	id2, err := store.Insert(ctx, "usb:0403:6001:A7003abc", "sess-1", usb, "/dev/ttyUSB0", DirectionRX, []byte("pong"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("record ids not monotonic: %d then %d", id1, id2)
	}

	// A row from another session must not leak into the query
	if _, err := store.Insert(ctx, "port:/dev/ttyS0", "sess-2", nil, "/dev/ttyS0", DirectionTX, []byte("other")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	records, err := store.QueryBySession(ctx, "sess-1", 10, 0)
	if err != nil {
		t.Fatalf("QueryBySession failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	// Newest first: the RX row was inserted last
	if records[0].ID != id2 || records[0].Direction != DirectionRX {
		t.Errorf("first record = id %d %s, want id %d RX", records[0].ID, records[0].Direction, id2)
	}
	if !bytes.Equal(records[0].Data, []byte("pong")) {
		t.Errorf("first record data = %q, want %q", records[0].Data, "pong")
	}
	if records[1].ID != id1 || !bytes.Equal(records[1].Data, []byte{0x01, 0x02}) {
		t.Errorf("second record = id %d data %v", records[1].ID, records[1].Data)
	}

	r := records[0]
	if r.VID != "0403" || r.PID != "6001" || r.SerialNumber != "A7003abc" {
		t.Errorf("USB columns = %s/%s/%s", r.VID, r.PID, r.SerialNumber)
	}
	if r.PortName != "/dev/ttyUSB0" {
		t.Errorf("PortName = %s", r.PortName)
	}
	if r.TimestampMs == 0 {
		t.Error("TimestampMs should be set")
	}
}

func TestInsertWithoutUSBIdentity(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Insert(ctx, "port:/dev/ttyS0", "sess-1", nil, "/dev/ttyS0", DirectionRX, []byte("x")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	records, err := store.QueryBySession(ctx, "sess-1", 10, 0)
	if err != nil {
		t.Fatalf("QueryBySession failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	// NULL USB columns come back as empty strings
	if records[0].VID != "" || records[0].PID != "" || records[0].SerialNumber != "" {
		t.Errorf("USB columns should be empty, got %s/%s/%s",
			records[0].VID, records[0].PID, records[0].SerialNumber)
	}
}

func TestQueryByDeviceSpansSessions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	fp := "usb:0403:6001:A7003abc"
	for _, sess := range []string{"sess-1", "sess-2", "sess-3"} {
		if _, err := store.Insert(ctx, fp, sess, nil, "/dev/ttyUSB0", DirectionTX, []byte(sess)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	records, err := store.QueryByDevice(ctx, fp, 10, 0)
	if err != nil {
		t.Fatalf("QueryByDevice failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}

func TestQueryLimitAndOffset(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := store.Insert(ctx, "port:/dev/ttyS0", "sess-1", nil, "/dev/ttyS0", DirectionRX, []byte{byte(i)})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		ids = append(ids, id)
	}

	records, err := store.QueryBySession(ctx, "sess-1", 2, 0)
	if err != nil {
		t.Fatalf("QueryBySession failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("limit 2 returned %d records", len(records))
	}
	if records[0].ID != ids[4] || records[1].ID != ids[3] {
		t.Errorf("page 1 = %d,%d, want %d,%d", records[0].ID, records[1].ID, ids[4], ids[3])
	}

	records, err = store.QueryBySession(ctx, "sess-1", 2, 2)
	if err != nil {
		t.Fatalf("QueryBySession with offset failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != ids[2] || records[1].ID != ids[1] {
		t.Errorf("page 2 returned unexpected rows: %+v", records)
	}
}

func TestQueryUnknownSessionIsEmpty(t *testing.T) {
	store := openTestStore(t)

	records, err := store.QueryBySession(context.Background(), "no-such-session", 10, 0)
	if err != nil {
		t.Fatalf("QueryBySession failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records for unknown session, want 0", len(records))
	}
}

func TestOpenCreatesFileAndSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if store.Path() != path {
		t.Errorf("Path() = %s, want %s", store.Path(), path)
	}
	if _, err := store.Insert(ctx, "port:/dev/ttyS0", "sess-1", nil, "/dev/ttyS0", DirectionTX, []byte("durable")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Rows persist across process-level reopen
	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	records, err := store.QueryBySession(ctx, "sess-1", 10, 0)
	if err != nil {
		t.Fatalf("QueryBySession after reopen failed: %v", err)
	}
	if len(records) != 1 || !bytes.Equal(records[0].Data, []byte("durable")) {
		t.Errorf("reopened store returned %+v", records)
	}
}
