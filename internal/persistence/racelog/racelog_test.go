package racelog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	if err := l.Write(Result{}); err != nil {
		t.Fatalf("nil write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	if New("") != nil {
		t.Fatal("empty dir must disable logging")
	}
}

func TestWriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	at := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := l.Write(Result{
			RoomUID:    uint32(i + 1),
			GameMode:   1,
			MapBlockID: 2,
			FinishedAt: at,
			Scores: []RacerResult{
				{CharacterUID: 10, Name: "Rider", CourseTime: 61234, Finished: true},
				{CharacterUID: 11, Name: "Other", CourseTime: 0xFFFFFFFF},
			},
		})
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := filepath.Join(dir, "races-2026-08-24-09.jsonl.zst")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var lines int
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var res Result
		if err := json.Unmarshal(sc.Bytes(), &res); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		if len(res.Scores) != 2 || res.Scores[0].Name != "Rider" {
			t.Fatalf("line %d: %+v", lines, res)
		}
		lines++
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if lines != 3 {
		t.Fatalf("read %d lines, want 3", lines)
	}
}
