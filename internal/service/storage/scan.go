package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cctvstation/internal/model"
)

var sessionDirPattern = regexp.MustCompile(`^([A-Z][a-z]{2}_\d{2}_\d{4}_\d{2}_\d{2}_\d{2})(?:_\d+)?$`)

// ParseSessionDir returns the start time encoded in a session directory name.
func ParseSessionDir(name string) (time.Time, error) {
	m := sessionDirPattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("not a session directory: %s", name)
	}
	return time.ParseInLocation(sessionDirLayout, m[1], time.Local)
}

// ReadSessionLog parses a session log. Row times carry no date, so each is placed on
// the session's start date, rolling over to the next day when the clock wraps.
func ReadSessionLog(path string, startedAt time.Time) ([]model.DetectionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open detection log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(LogHeader)

	var (
		records []model.DetectionRecord
		day     = time.Date(startedAt.Year(), startedAt.Month(), startedAt.Day(), 0, 0, 0, 0, startedAt.Location())
		last    = startedAt
		line    = 0
	)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return records, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && row[0] == LogHeader[0] {
			continue
		}

		rec, err := parseLogRow(row, day)
		if err != nil {
			return records, fmt.Errorf("line %d: %w", line, err)
		}
		for rec.Time.Before(last.Truncate(time.Second)) {
			day = day.AddDate(0, 0, 1)
			rec.Time = rec.Time.AddDate(0, 0, 1)
		}
		last = rec.Time
		records = append(records, rec)
	}
	return records, nil
}

func parseLogRow(row []string, day time.Time) (model.DetectionRecord, error) {
	var rec model.DetectionRecord
	var err error

	rec.Label = strings.TrimSpace(row[0])
	if rec.X, err = strconv.Atoi(strings.TrimSpace(row[1])); err != nil {
		return rec, fmt.Errorf("invalid x: %w", err)
	}
	if rec.Y, err = strconv.Atoi(strings.TrimSpace(row[2])); err != nil {
		return rec, fmt.Errorf("invalid y: %w", err)
	}
	if rec.Confidence, err = strconv.ParseFloat(strings.TrimSpace(row[3]), 64); err != nil {
		return rec, fmt.Errorf("invalid confidence: %w", err)
	}
	clock, err := time.Parse("15:04:05", strings.TrimSpace(row[4]))
	if err != nil {
		return rec, fmt.Errorf("invalid time: %w", err)
	}
	rec.Time = day.Add(time.Duration(clock.Hour())*time.Hour +
		time.Duration(clock.Minute())*time.Minute +
		time.Duration(clock.Second())*time.Second)
	if rec.FrameIndex, err = strconv.Atoi(strings.TrimSpace(row[5])); err != nil {
		return rec, fmt.Errorf("invalid frame count: %w", err)
	}
	return rec, nil
}

// CountFrames returns how many frame images a session directory holds.
func CountFrames(rootDir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(rootDir, FramesDirName, "frame_*.jpg"))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}
