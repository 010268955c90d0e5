package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"thegrind.cafe/internal/persistence/snapshot"
)

type WeekArchiveMeta struct {
	SaveID    string `json:"save_id"`
	Week      int    `json:"week"`
	LastDay   int    `json:"last_day"`
	EndTick   uint64 `json:"end_tick"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// WeekOf reports which week a day-end snapshot closes. Header.Day is the
// day the boundary tick opens, so the day that just ended is one less.
func WeekOf(h snapshot.Header, everyDays int) (week int, ok bool) {
	if !h.DayEnd || everyDays <= 0 {
		return 0, false
	}
	ended := h.Day - 1
	if ended <= 0 || ended%everyDays != 0 {
		return 0, false
	}
	return ended / everyDays, true
}

// ArchiveWeekSnapshot copies a week-closing snapshot into
// saveDir/archives/week_<NNNN>/ next to a meta.json.
func ArchiveWeekSnapshot(saveDir, snapshotPath string, h snapshot.Header, everyDays int) (week int, archivedPath string, archived bool, err error) {
	week, ok := WeekOf(h, everyDays)
	if !ok {
		return 0, "", false, nil
	}

	archiveDir := filepath.Join(saveDir, "archives", fmt.Sprintf("week_%04d", week))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	meta := WeekArchiveMeta{
		SaveID:    h.SaveID,
		Week:      week,
		LastDay:   h.Day - 1,
		EndTick:   h.Tick,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return 0, "", false, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return 0, "", false, err
	}

	return week, dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
