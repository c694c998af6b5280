package label

import (
	"bytes"
	"errors"
	"testing"

	"github.com/robert-malhotra/go-msbt/internal/binary"
)

func TestHash(t *testing.T) {
	tests := []struct {
		label string
		slots uint32
		want  uint32
	}{
		{"a", 101, 97},
		{"ab", 101, 64},
		{"ab", 3, 2},
		{"Msg_001", 101, 71},
		{"Msg_002", 101, 72},
		{"Hello", 101, 25},
		{"", 101, 0},
	}

	for _, tt := range tests {
		if got := Hash(tt.label, tt.slots); got != tt.want {
			t.Errorf("Hash(%q, %d) = %d, want %d", tt.label, tt.slots, got, tt.want)
		}
	}
}

func TestHashWraps(t *testing.T) {
	long := "this_label_is_long_enough_to_overflow_32_bits"
	if Hash(long, 101) != Hash(long, 101) {
		t.Fatal("hash not deterministic")
	}
	if Hash(long, 101) >= 101 {
		t.Errorf("hash not reduced: %d", Hash(long, 101))
	}
}

func TestBuildWriteLayout(t *testing.T) {
	table, err := BuildLabels([]string{"a", "b", "c"}, 3)
	if err != nil {
		t.Fatalf("BuildLabels failed: %v", err)
	}

	buf := binary.NewBuffer(64)
	if err := table.Write(binary.NewWriter(buf, binary.DefaultConfig())); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := []byte{
		0, 0, 0, 3,
		0, 0, 0, 1, 0, 0, 0, 28,
		0, 0, 0, 1, 0, 0, 0, 34,
		0, 0, 0, 1, 0, 0, 0, 40,
		1, 'c', 0, 0, 0, 2,
		1, 'a', 0, 0, 0, 0,
		1, 'b', 0, 0, 0, 1,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("layout mismatch\n got %x\nwant %x", buf.Bytes(), want)
	}
}

func TestWriteEmptySlots(t *testing.T) {
	table, err := BuildLabels([]string{"a"}, 3)
	if err != nil {
		t.Fatalf("BuildLabels failed: %v", err)
	}
	buf := binary.NewBuffer(64)
	table.Write(binary.NewWriter(buf, binary.DefaultConfig()))

	want := []byte{
		0, 0, 0, 3,
		0, 0, 0, 0, 0, 0, 0, 28,
		0, 0, 0, 1, 0, 0, 0, 28,
		0, 0, 0, 0, 0, 0, 0, 34,
		1, 'a', 0, 0, 0, 0,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("layout mismatch\n got %x\nwant %x", buf.Bytes(), want)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	entries := []Entry{
		{"Msg_002", 1},
		{"Msg_001", 0},
		{"Hello", 2},
		{"Another", 3},
	}
	table, err := Build(entries, 101)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	buf := binary.NewBuffer(0)
	table.Write(binary.NewWriter(buf, binary.DefaultConfig()))

	got, err := Read(binary.NewReader(buf.Bytes(), binary.DefaultConfig()))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.SlotCount != 101 {
		t.Errorf("expected 101 slots, got %d", got.SlotCount)
	}
	if len(got.Entries) != len(table.Entries) {
		t.Fatalf("expected %d entries, got %d", len(table.Entries), len(got.Entries))
	}
	for i := range got.Entries {
		if got.Entries[i] != table.Entries[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, got.Entries[i], table.Entries[i])
		}
	}

	labels, err := got.Labels(4)
	if err != nil {
		t.Fatalf("Labels failed: %v", err)
	}
	want := []string{"Msg_001", "Msg_002", "Hello", "Another"}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label %d: got %q, want %q", i, labels[i], want[i])
		}
	}

	if idx, ok := got.Lookup("Hello"); !ok || idx != 2 {
		t.Errorf("Lookup(Hello) = %d, %v", idx, ok)
	}

	// Rebuilding from disk order reproduces identical bytes.
	again, _ := Build(got.Entries, got.SlotCount)
	buf2 := binary.NewBuffer(0)
	again.Write(binary.NewWriter(buf2, binary.DefaultConfig()))
	if !bytes.Equal(buf.Bytes(), buf2.Bytes()) {
		t.Error("rebuilt table differs")
	}
}

func TestBuildPreservesBucketOrder(t *testing.T) {
	// "c" and "Msg_001" both land in bucket 0 of 3.
	table, err := BuildLabels([]string{"Msg_001", "a", "c"}, 3)
	if err != nil {
		t.Fatalf("BuildLabels failed: %v", err)
	}
	if table.Entries[0].Label != "Msg_001" || table.Entries[1].Label != "c" {
		t.Errorf("bucket order not preserved: %+v", table.Entries)
	}
}

func TestErrors(t *testing.T) {
	if _, err := BuildLabels([]string{"a"}, 0); !errors.Is(err, ErrZeroSlots) {
		t.Errorf("expected ErrZeroSlots, got %v", err)
	}
	if _, err := BuildLabels([]string{string(make([]byte, 256))}, 1); !errors.Is(err, ErrLabelTooLong) {
		t.Errorf("expected ErrLabelTooLong, got %v", err)
	}

	table := &Table{SlotCount: 1, Entries: []Entry{{"x", 5}}}
	if _, err := table.Labels(1); !errors.Is(err, ErrIndexRange) {
		t.Errorf("expected ErrIndexRange, got %v", err)
	}

	if _, err := Read(binary.NewReader([]byte{0, 0, 0, 2, 0, 0, 0, 1}, binary.DefaultConfig())); !errors.Is(err, binary.ErrUnexpectedEnd) {
		t.Errorf("expected ErrUnexpectedEnd, got %v", err)
	}
}
