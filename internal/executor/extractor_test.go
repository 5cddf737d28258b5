package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAndExecute_ReadAfterSeek(t *testing.T) {
	src := "fseek(fp, sizeof(Student) * 2, SEEK_SET);\nfread(&s, sizeof(Student), 1, fp);\n"
	state := NewExecutionState(DefaultFileSize)

	got := ParseAndExecute(src, state)
	want := []MemoryOperation{
		{
			Kind:        OpSeek,
			Description: "Line 1: fseek(fp, 48, SEEK_SET) → Position 48 bytes (Struct 3)",
			Line:        1,
			FilePointer: 48,
			ByteOffset:  0,
			StructIndex: 2,
			Detail:      map[string]any{"from": 0, "to": 48, "whence": "SEEK_SET"},
		},
		{
			Kind:        OpRead,
			Description: "Line 2: fread() → Read from position 48",
			Line:        2,
			FilePointer: 48,
			ByteOffset:  0,
			StructIndex: 2,
			Detail:      map[string]any{"operation": "read"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseAndExecute() mismatch (-want +got):\n%s", diff)
	}

	snap := Snapshot(*state)
	if snap.FileSize != 1024 || snap.StructSize != 24 || snap.StructType != "Student" {
		t.Errorf("Snapshot() = size %d/%d type %q", snap.FileSize, snap.StructSize, snap.StructType)
	}
	if len(snap.Data) != 42 {
		t.Errorf("Snapshot() rows = %d, want 42", len(snap.Data))
	}
}

func TestParseAndExecute_Seek(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantFP     int
		wantIndex  int
		wantOffset int
	}{
		{name: "set", src: "fseek(fp, 100, SEEK_SET);", wantFP: 100, wantIndex: 4, wantOffset: 4},
		{name: "set zero", src: "fseek(fp, 0, SEEK_SET);", wantFP: 0},
		{name: "cur from start", src: "fseek(fp, 30, SEEK_CUR);", wantFP: 30, wantIndex: 1, wantOffset: 6},
		{name: "set then cur", src: "fseek(fp, 48, SEEK_SET);\nfseek(fp, 10, SEEK_CUR);", wantFP: 58, wantIndex: 2, wantOffset: 10},
		{name: "end", src: "fseek(fp, -24, SEEK_END);", wantFP: 1000, wantIndex: 41, wantOffset: 16},
		{name: "end zero", src: "fseek(fp, 0, SEEK_END);", wantFP: 1024, wantIndex: 42, wantOffset: 16},
		{name: "expression", src: "fseek(file, sizeof(Student) * 3 + 4, SEEK_SET);", wantFP: 76, wantIndex: 3, wantOffset: 4},
		{name: "no spaces", src: "fseek(fp,sizeof(Student),SEEK_SET);", wantFP: 24, wantIndex: 1},
		{name: "inside if", src: "if (fseek(fp, 12, SEEK_SET) != 0) return 1;", wantFP: 12, wantOffset: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewExecutionState(DefaultFileSize)
			ops := ParseAndExecute(tt.src, state)
			if len(ops) == 0 {
				t.Fatalf("ParseAndExecute() returned no operations")
			}
			last := ops[len(ops)-1]
			if last.Kind != OpSeek {
				t.Errorf("Kind = %v, want %v", last.Kind, OpSeek)
			}
			if last.FilePointer != tt.wantFP || state.FilePointer != tt.wantFP {
				t.Errorf("FilePointer = %d (state %d), want %d", last.FilePointer, state.FilePointer, tt.wantFP)
			}
			if last.StructIndex != tt.wantIndex {
				t.Errorf("StructIndex = %d, want %d", last.StructIndex, tt.wantIndex)
			}
			if last.ByteOffset != tt.wantOffset {
				t.Errorf("ByteOffset = %d, want %d", last.ByteOffset, tt.wantOffset)
			}
		})
	}
}

func TestParseAndExecute_SeekCurComposes(t *testing.T) {
	split := NewExecutionState(DefaultFileSize)
	ParseAndExecute("fseek(fp, 10, SEEK_SET);\nfseek(fp, 7, SEEK_CUR);\nfseek(fp, 31, SEEK_CUR);", split)

	joined := NewExecutionState(DefaultFileSize)
	ParseAndExecute("fseek(fp, 10, SEEK_SET);\nfseek(fp, 38, SEEK_CUR);", joined)

	if split.FilePointer != joined.FilePointer {
		t.Errorf("split SEEK_CUR = %d, joined = %d", split.FilePointer, joined.FilePointer)
	}
	if split.FilePointer != 48 {
		t.Errorf("FilePointer = %d, want 48", split.FilePointer)
	}
}

func TestParseAndExecute_SeekDetail(t *testing.T) {
	state := NewExecutionState(DefaultFileSize)
	ops := ParseAndExecute("fseek(fp, 24, SEEK_SET);\nfseek(fp, 24, SEEK_CUR);", state)
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	want := map[string]any{"from": 24, "to": 48, "whence": "SEEK_CUR"}
	if diff := cmp.Diff(want, ops[1].Detail); diff != "" {
		t.Errorf("Detail mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAndExecute_UnknownWhenceKeepsPointer(t *testing.T) {
	state := NewExecutionState(DefaultFileSize)
	ops := ParseAndExecute("fseek(fp, 48, SEEK_SET);\nfseek(fp, 8, SEEK_DATA);", state)
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if state.FilePointer != 48 || ops[1].FilePointer != 48 {
		t.Errorf("FilePointer = %d, want 48", state.FilePointer)
	}
	if ops[1].Detail["whence"] != "SEEK_DATA" {
		t.Errorf("whence = %v, want SEEK_DATA", ops[1].Detail["whence"])
	}
}

func TestParseAndExecute_NegativePositionKeepsPointer(t *testing.T) {
	state := NewExecutionState(DefaultFileSize)
	ops := ParseAndExecute("fseek(fp, 10, SEEK_SET);\nfseek(fp, -30, SEEK_CUR);", state)
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if state.FilePointer != 10 {
		t.Errorf("FilePointer = %d, want 10", state.FilePointer)
	}
	if ops[1].ByteOffset < 0 || ops[1].StructIndex < 0 {
		t.Errorf("negative position reported: %+v", ops[1])
	}
}

func TestParseAndExecute_Write(t *testing.T) {
	state := NewExecutionState(DefaultFileSize)
	ops := ParseAndExecute("fseek(fp, 50, SEEK_SET);\nfwrite(&s, sizeof(Student), 1, fp);", state)
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	want := MemoryOperation{
		Kind:        OpWrite,
		Description: "Line 2: fwrite() → Wrote to position 50",
		Line:        2,
		FilePointer: 50,
		ByteOffset:  2,
		StructIndex: 2,
		Detail:      map[string]any{"operation": "write"},
	}
	if diff := cmp.Diff(want, ops[1]); diff != "" {
		t.Errorf("fwrite mismatch (-want +got):\n%s", diff)
	}
	if state.FilePointer != 50 {
		t.Errorf("fwrite moved the file pointer to %d", state.FilePointer)
	}
}

func TestParseAndExecute_StructDefinition(t *testing.T) {
	state := NewExecutionState(DefaultFileSize)
	ops := ParseAndExecute("fseek(fp, 5, SEEK_SET);\ntypedef struct { int id; char name[20]; float grade; } Record;", state)
	if len(ops) != 1 {
		t.Fatalf("len(ops) = %d, want 1", len(ops))
	}
	if state.StructType != "Record" {
		t.Errorf("StructType = %q, want Record", state.StructType)
	}
	if state.FilePointer != 5 {
		t.Errorf("FilePointer = %d, want 5", state.FilePointer)
	}
}

func TestParseAndExecute_SizeofAssignment(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantSize int
	}{
		{name: "double", src: "size_t n = sizeof(double);", wantSize: 8},
		{name: "char", src: "int width = sizeof( char );", wantSize: 1},
		{name: "unknown type", src: "size_t n = sizeof(int);\nsize_t m = sizeof(Header);", wantSize: 24},
		{name: "no sizeof", src: "int n = 5;", wantSize: 24},
		{name: "if condition", src: "if (n == sizeof(int)) {", wantSize: 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewExecutionState(DefaultFileSize)
			ops := ParseAndExecute(tt.src, state)
			if len(ops) != 0 {
				t.Errorf("assignment produced %d operations", len(ops))
			}
			if state.StructSize != tt.wantSize {
				t.Errorf("StructSize = %d, want %d", state.StructSize, tt.wantSize)
			}
		})
	}
}

func TestParseAndExecute_SizeofUsesCurrentSize(t *testing.T) {
	state := NewExecutionState(DefaultFileSize)
	ops := ParseAndExecute("size_t n = sizeof(double);\nfseek(fp, sizeof(Student) * 2, SEEK_SET);", state)
	if len(ops) != 1 {
		t.Fatalf("len(ops) = %d, want 1", len(ops))
	}
	if ops[0].FilePointer != 16 || ops[0].StructIndex != 2 {
		t.Errorf("seek = %d (struct %d), want 16 (struct 2)", ops[0].FilePointer, ops[0].StructIndex)
	}
}

func TestParseAndExecute_IgnoresUnrecognized(t *testing.T) {
	src := `
// fseek(fp, 100, SEEK_SET);
#include <stdio.h>
int main(void) {
    FILE *fp;
    fseek(fp, 10);
    fseek fp 10 SEEK_SET;
    typedef struct Node Node;
    if (x = 3) {}
    return 0;
}
`
	state := NewExecutionState(DefaultFileSize)
	ops := ParseAndExecute(src, state)
	if len(ops) != 0 {
		t.Errorf("ParseAndExecute() = %+v, want no operations", ops)
	}
	if diff := cmp.Diff(*NewExecutionState(DefaultFileSize), *state); diff != "" {
		t.Errorf("state changed (-want +got):\n%s", diff)
	}
}

func TestParseAndExecute_LineNumbers(t *testing.T) {
	src := "\n\n    // header\n\n\tfseek(fp, 4, SEEK_SET);\r\n\nfread(&s, 1, 1, fp);"
	ops := ParseAndExecute(src, NewExecutionState(DefaultFileSize))
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[0].Line != 5 || ops[1].Line != 7 {
		t.Errorf("lines = %d, %d, want 5, 7", ops[0].Line, ops[1].Line)
	}
}

func TestTrace_Deterministic(t *testing.T) {
	src := "typedef struct { int id; } Item;\nfseek(fp, sizeof(Item) * 4, SEEK_SET);\nfread(&it, sizeof(Item), 1, fp);\nfseek(fp, -8, SEEK_END);\nfwrite(&it, sizeof(Item), 1, fp);"

	first := Trace(src, NewExecutionState(DefaultFileSize))
	second := Trace(src, NewExecutionState(DefaultFileSize))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Trace() not deterministic (-first +second):\n%s", diff)
	}
	if len(first) != 4 {
		t.Fatalf("len(steps) = %d, want 4", len(first))
	}
	if first[0].State.FilePointer != 96 || first[2].State.FilePointer != 1016 {
		t.Errorf("step states = %d, %d", first[0].State.FilePointer, first[2].State.FilePointer)
	}
	if first[0].State.StructType != "Item" {
		t.Errorf("StructType = %q, want Item", first[0].State.StructType)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want LineKind
	}{
		{"fseek(fp, 0, SEEK_SET);", LineSeek},
		{"fseek(fp, 0, SEEK_SET); fread(&s, 1, 1, fp);", LineSeek},
		{"fread(&s, sizeof(Student), 1, fp);", LineReadWrite},
		{"n = fwrite(&s, 1, 1, fp);", LineReadWrite},
		{"typedef struct { int a; } A; int x = 1;", LineStructDef},
		{"size_t n = sizeof(int);", LineAssignment},
		{"x = 1;", LineAssignment},
		{"if (x == 1) {", LineIgnored},
		{"int x;", LineIgnored},
		{"", LineIgnored},
	}
	for _, tt := range tests {
		if got := Classify(tt.line); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestParseAndExecute_SeekBeyondInt32(t *testing.T) {
	state := NewExecutionState(DefaultFileSize)
	ops := ParseAndExecute("fseek(fp, 3000000000, SEEK_SET);\nfseek(fp, 010, SEEK_CUR);", state)
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[0].FilePointer != 3000000000 {
		t.Errorf("FilePointer = %d, want 3000000000", ops[0].FilePointer)
	}
	want := "Line 1: fseek(fp, 3000000000, SEEK_SET) → Position 3000000000 bytes (Struct 125000001)"
	if ops[0].Description != want {
		t.Errorf("Description = %q, want %q", ops[0].Description, want)
	}
	if state.FilePointer != 3000000008 {
		t.Errorf("FilePointer = %d, want 3000000008", state.FilePointer)
	}
}
