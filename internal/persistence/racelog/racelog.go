// Package racelog appends finished race results to hourly-rotated,
// zstd-compressed JSONL files.
package racelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Result is one finished race.
type Result struct {
	RoomUID    uint32        `json:"room_uid"`
	GameMode   uint8         `json:"game_mode"`
	TeamMode   uint8         `json:"team_mode"`
	MapBlockID uint16        `json:"map_block_id"`
	FinishedAt time.Time     `json:"finished_at"`
	Scores     []RacerResult `json:"scores"`
}

// RacerResult is one scoreboard row, in final ranking order.
type RacerResult struct {
	CharacterUID uint32 `json:"character_uid"`
	Name         string `json:"name"`
	CourseTime   uint32 `json:"course_time"`
	Finished     bool   `json:"finished"`
	StarPoints   uint32 `json:"star_points"`
}

// Logger writes results. A nil Logger discards everything, so callers
// never guard the disabled case.
type Logger struct {
	baseDir string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func New(baseDir string) *Logger {
	if baseDir == "" {
		return nil
	}
	return &Logger{baseDir: baseDir}
}

func (l *Logger) Write(res Result) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	hour := res.FinishedAt.UTC().Format("2006-01-02-15")
	if hour != l.curHour {
		if err := l.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *Logger) rotateLocked(hour string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 128*1024)
	l.curHour = hour
	return nil
}

func (l *Logger) closeLocked() error {
	var err error
	if l.w != nil {
		_ = l.w.Flush()
	}
	if l.enc != nil {
		err = l.enc.Close()
		l.enc = nil
	}
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
	l.w = nil
	return err
}

func (l *Logger) pathForHour(hour string) string {
	return filepath.Join(l.baseDir, fmt.Sprintf("races-%s.jsonl.zst", hour))
}
