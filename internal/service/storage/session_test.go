package storage

import (
	"encoding/csv"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cctvstation/internal/model"
	"cctvstation/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEncoder struct {
	mu       sync.Mutex
	frames   int
	closed   int
	writeErr error
}

func (e *fakeEncoder) Write(img image.Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.writeErr != nil {
		return e.writeErr
	}
	e.frames++
	return nil
}

func (e *fakeEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed++
	return nil
}

func testOptions(clock timeutil.Clock, enc *fakeEncoder) Options {
	return Options{
		Width:  64,
		Height: 48,
		FPS:    20,
		Clock:  clock,
		NewEncoder: func(path string, fps float64, width, height int) (VideoEncoder, error) {
			return enc, nil
		},
	}
}

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	img.Set(3, 3, color.RGBA{R: 255, A: 255})
	return img
}

func readLog(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCreateSession_Layout(t *testing.T) {
	base := t.TempDir()
	clock := timeutil.NewMockClock(time.Date(2024, time.March, 7, 14, 5, 9, 0, time.Local))
	enc := &fakeEncoder{}

	s, err := CreateSession(base, testOptions(clock, enc))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, filepath.Join(base, "Mar_07_2024_14_05_09"), s.RootDir)
	assert.DirExists(t, s.FramesDir)
	assert.FileExists(t, s.LogPath)
	assert.Equal(t, filepath.Join(s.RootDir, VideoFileName), s.VideoPath)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 0, s.FrameCount())
}

func TestCreateSession_SameSecondGetsDistinctTree(t *testing.T) {
	base := t.TempDir()
	clock := timeutil.NewMockClock(time.Date(2024, time.March, 7, 14, 5, 9, 0, time.Local))

	first, err := CreateSession(base, testOptions(clock, &fakeEncoder{}))
	require.NoError(t, err)
	defer first.Close()
	second, err := CreateSession(base, testOptions(clock, &fakeEncoder{}))
	require.NoError(t, err)
	defer second.Close()

	assert.NotEqual(t, first.RootDir, second.RootDir)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, filepath.Join(base, "Mar_07_2024_14_05_09_2"), second.RootDir)
}

func TestCreateSession_UnwritableBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0644))

	_, err := CreateSession(base, testOptions(nil, &fakeEncoder{}))
	assert.Error(t, err)
}

func TestCreateSession_EncoderFailureReleasesLog(t *testing.T) {
	opts := testOptions(nil, nil)
	opts.NewEncoder = func(string, float64, int, int) (VideoEncoder, error) {
		return nil, errors.New("no codec")
	}

	_, err := CreateSession(t.TempDir(), opts)
	assert.ErrorContains(t, err, "no codec")
}

func TestAppendDetection_HeaderOnceAndFirst(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2024, 1, 2, 9, 8, 7, 0, time.Local))
	s, err := CreateSession(t.TempDir(), testOptions(clock, &fakeEncoder{}))
	require.NoError(t, err)

	records := []model.DetectionRecord{
		{Label: "Knives", X: 10, Y: 20, Confidence: 0.88, Time: clock.Now(), FrameIndex: 0},
		{Label: "Handguns", X: 1, Y: 2, Confidence: 0.5, Time: clock.Now(), FrameIndex: 0},
		{Label: "Knives", X: 11, Y: 21, Confidence: 0.91, Time: clock.Now(), FrameIndex: 1},
	}
	for _, rec := range records {
		require.NoError(t, s.AppendDetection(rec))
	}
	require.NoError(t, s.Close())

	rows := readLog(t, s.LogPath)
	require.Len(t, rows, 4)
	assert.Equal(t, LogHeader, rows[0])
	assert.Equal(t, []string{"Knives", "10", "20", "0.88", "09:08:07", "0"}, rows[1])
	assert.Equal(t, []string{"Handguns", "1", "2", "0.50", "09:08:07", "0"}, rows[2])
	assert.Equal(t, "1", rows[3][5])

	headers := 0
	for _, row := range rows {
		if row[0] == LogHeader[0] {
			headers++
		}
	}
	assert.Equal(t, 1, headers)
}

func TestAppendDetection_NoDetectionsNoHeader(t *testing.T) {
	s, err := CreateSession(t.TempDir(), testOptions(nil, &fakeEncoder{}))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(s.LogPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestStoreFrame_CounterIsGapless(t *testing.T) {
	enc := &fakeEncoder{}
	s, err := CreateSession(t.TempDir(), testOptions(nil, enc))
	require.NoError(t, err)
	defer s.Close()

	for want := 0; want < 5; want++ {
		got, err := s.StoreFrame(testImage())
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.FileExists(t, filepath.Join(s.FramesDir, FrameFileName(want)))
	}
	assert.Equal(t, 5, s.FrameCount())
	assert.Equal(t, 5, enc.frames)
	assert.NoFileExists(t, filepath.Join(s.FramesDir, FrameFileName(5)))
}

func TestStoreFrame_EncodeFailureDoesNotAdvance(t *testing.T) {
	enc := &fakeEncoder{writeErr: errors.New("disk full")}
	s, err := CreateSession(t.TempDir(), testOptions(nil, enc))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.StoreFrame(testImage())
	assert.Error(t, err)
	assert.Equal(t, 0, s.FrameCount())

	enc.writeErr = nil
	idx, err := s.StoreFrame(testImage())
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, s.FrameCount())
}

func TestClose_Idempotent(t *testing.T) {
	enc := &fakeEncoder{}
	s, err := CreateSession(t.TempDir(), testOptions(nil, enc))
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.Equal(t, 1, enc.closed)

	_, err = s.StoreFrame(testImage())
	assert.Error(t, err)
	assert.Error(t, s.AppendDetection(model.DetectionRecord{Label: "SMG"}))
}

func TestInfo_Snapshot(t *testing.T) {
	s, err := CreateSession(t.TempDir(), testOptions(nil, &fakeEncoder{}))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.StoreFrame(testImage())
	require.NoError(t, err)

	info := s.Info()
	assert.Equal(t, s.ID, info.ID)
	assert.Equal(t, s.RootDir, info.RootDir)
	assert.Equal(t, 1, info.FrameCount)
}
