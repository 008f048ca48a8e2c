// Package backup snapshots the SQLite store, rotates old snapshots and
// restores from them.
package backup

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/logger"
)

const stampLayout = "20060102-150405"

// ErrNoDatabase is returned when there is nothing to back up
var ErrNoDatabase = errors.New("database does not exist")

// Info describes one snapshot on disk
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

func (i Info) Name() string {
	return filepath.Base(i.Path)
}

type Manager struct {
	dbPath    string
	backupDir string
	keep      int
	now       func() time.Time
}

// NewManager keeps snapshots in a backups directory next to dbPath
func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath:    dbPath,
		backupDir: filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		keep:      constants.MaxBackups,
		now:       time.Now,
	}
}

func (m *Manager) Dir() string {
	return m.backupDir
}

// Create writes a new snapshot and prunes the oldest beyond the retention limit
func (m *Manager) Create() (Info, error) {
	info, err := m.snapshot()
	if err != nil {
		return Info{}, err
	}
	if err := m.rotate(); err != nil {
		logger.Warn("Failed to rotate old backups", "error", err)
	}
	logger.Info("Created backup", "path", info.Path, "bytes", info.Size)
	return info, nil
}

func (m *Manager) snapshot() (Info, error) {
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return Info{}, fmt.Errorf("%w: %s", ErrNoDatabase, m.dbPath)
	}
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return Info{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	ts := m.now()
	path, err := m.freePath(ts)
	if err != nil {
		return Info{}, err
	}

	db, err := sql.Open("sqlite", m.dbPath+"?mode=ro")
	if err != nil {
		return Info{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := checkDatabase(db); err != nil {
		return Info{}, fmt.Errorf("database appears to be corrupted: %w", err)
	}
	// VACUUM INTO includes committed WAL pages in the copy
	if _, err := db.Exec("VACUUM INTO ?", path); err != nil {
		return Info{}, fmt.Errorf("failed to write backup: %w", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to stat backup: %w", err)
	}
	return Info{Path: path, Timestamp: ts.Truncate(time.Second), Size: st.Size()}, nil
}

// freePath picks the snapshot file name for ts, adding a counter on collision
func (m *Manager) freePath(ts time.Time) (string, error) {
	stamp := ts.Format(stampLayout)
	for n := 0; n < 100; n++ {
		name := constants.BackupFilePrefix + stamp
		if n > 0 {
			name += "-" + strconv.Itoa(n)
		}
		path := filepath.Join(m.backupDir, name+constants.BackupFileSuffix)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique backup filename")
}

// List returns snapshots newest first. Files that do not look like snapshots are skipped.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []Info{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, ok := parseName(e.Name())
		if !ok {
			continue
		}
		st, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:      filepath.Join(m.backupDir, e.Name()),
			Timestamp: ts,
			Size:      st.Size(),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Path > backups[j].Path
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// parseName reads the timestamp from rehab-YYYYMMDD-HHMMSS[-N].db
func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)
	if len(stamp) > len(stampLayout) {
		if _, err := strconv.Atoi(strings.TrimPrefix(stamp[len(stampLayout):], "-")); err != nil {
			return time.Time{}, false
		}
		stamp = stamp[:len(stampLayout)]
	}
	ts, err := time.ParseInLocation(stampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := m.keep; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Name(), err)
		}
	}
	return nil
}

// Restore replaces the database with the snapshot at path. The current
// database is snapshotted first and that snapshot is returned. The store must
// be closed while this runs.
func (m *Manager) Restore(path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("backup file does not exist: %s", path)
	}
	if err := verify(path); err != nil {
		return Info{}, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous Info
	if _, err := os.Stat(m.dbPath); err == nil {
		previous, err = m.snapshot()
		if err != nil {
			return Info{}, fmt.Errorf("failed to back up current database before restore: %w", err)
		}
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return Info{}, fmt.Errorf("failed to copy backup file: %w", err)
	}
	// Stale WAL pages belong to the old database
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(m.dbPath + suffix)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		_ = os.Remove(tmp)
		return Info{}, fmt.Errorf("failed to restore database: %w", err)
	}

	logger.Info("Restored backup", "from", path, "previous", previous.Path)
	return previous, nil
}

func verify(path string) error {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()
	return checkDatabase(db)
}

// checkDatabase requires a readable schema with a recorded migration version
func checkDatabase(db *sql.DB) error {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'").Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return errors.New("not a rehab database: schema_version table missing")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
