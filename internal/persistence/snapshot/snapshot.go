package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// FormatVersion is the file layout version, independent of the state schema
// version carried inside the state itself.
const FormatVersion = 1

// Header is the first line of a snapshot file, readable without decoding the
// state.
type Header struct {
	Version   int       `json:"version"`
	SaveID    string    `json:"save_id"`
	Tick      uint64    `json:"tick"`
	Day       int       `json:"day"`
	DayEnd    bool      `json:"day_end,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is a header plus the raw state JSON. The state is kept raw so
// loading can run it through the save migration.
type Snapshot struct {
	Header Header
	State  json.RawMessage
}

var ErrNoHeader = errors.New("snapshot: missing header line")

// FileName is the canonical snapshot file name for a tick.
func FileName(tick uint64) string {
	return fmt.Sprintf("%d.snap.zst", tick)
}

func Encode(w io.Writer, snap Snapshot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	if snap.Header.Version == 0 {
		snap.Header.Version = FormatVersion
	}
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(bytes.TrimSpace(snap.State)); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func Decode(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return snap, ErrNoHeader
		}
		return snap, err
	}
	if err := json.Unmarshal(line, &snap.Header); err != nil {
		return snap, fmt.Errorf("snapshot header: %w", err)
	}
	if snap.Header.Version > FormatVersion {
		return snap, fmt.Errorf("snapshot format %d is newer than %d", snap.Header.Version, FormatVersion)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return snap, fmt.Errorf("snapshot body: %w", err)
	}
	if !json.Valid(body) {
		return snap, errors.New("snapshot body: invalid json")
	}
	snap.State = body
	return snap, nil
}

// WriteSnapshot writes atomically: a temp file in the same directory is
// renamed over path once fully flushed.
func WriteSnapshot(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snap-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, snap); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func ReadSnapshot(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()
	return Decode(f)
}

// ReadHeader decodes only the first line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, ErrNoHeader
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}
