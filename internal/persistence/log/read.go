package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"thegrind.cafe/internal/sim/world"
)

// Files lists the rotated log files under dir for prefix, oldest first.
func Files(dir, prefix string) ([]string, error) {
	out, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// EachLine calls fn for every JSONL line of a compressed log file.
func EachLine(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadDays returns every day summary logged under saveDir, oldest first.
func ReadDays(saveDir string) ([]world.DaySummary, error) {
	files, err := Files(filepath.Join(saveDir, "days"), "days")
	if err != nil {
		return nil, err
	}
	var out []world.DaySummary
	for _, p := range files {
		err := EachLine(p, func(line []byte) error {
			var d world.DaySummary
			if err := json.Unmarshal(line, &d); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(p), err)
			}
			out = append(out, d)
			return nil
		})
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
