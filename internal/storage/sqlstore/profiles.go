package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/rehab/internal/constants"
	apperrors "github.com/julianstephens/rehab/internal/errors"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/storage"
)

const profileColumns = `id, display_name, email, addiction_type, quit_date, daily_spending,
	current_streak, longest_streak, points, created_at, updated_at`

func (s *Store) CreateProfile(p models.Profile) error {
	if p.ID == "" {
		return apperrors.New(apperrors.KindValidation, "profile id is required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	var quitDate sql.NullString
	if p.QuitDate != nil {
		quitDate = sql.NullString{String: formatTime(*p.QuitDate), Valid: true}
	}

	return s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		var exists int
		err := tx.QueryRow(s.rebind("SELECT 1 FROM profiles WHERE id = ?"), p.ID).Scan(&exists)
		if err == nil {
			return nil, fmt.Errorf("profile %q: %w", p.ID, storage.ErrAlreadyExists)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check profile: %w", err)
		}

		_, err = s.txExec(tx, `
			INSERT INTO profiles (`+profileColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.DisplayName, p.Email, string(p.AddictionType), quitDate, p.DailySpending,
			p.CurrentStreak, p.LongestStreak, p.Points, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
		if err != nil {
			return nil, fmt.Errorf("failed to insert profile: %w", err)
		}

		for _, e := range p.Log {
			if err := s.upsertLogEntry(tx, p.ID, e); err != nil {
				return nil, err
			}
		}
		for _, r := range p.ReasonsToQuit {
			if err := s.insertReason(tx, p.ID, r); err != nil {
				return nil, err
			}
		}

		return []storage.Change{storage.NewChange(storage.CollectionProfiles, p.ID, storage.ChangeCreated)}, nil
	})
}

func (s *Store) GetProfile(id string) (models.Profile, error) {
	row := s.queryRow("SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
	p, err := scanProfile(row)
	if err != nil {
		return models.Profile{}, notFound(err, "profile", id)
	}

	if p.Log, err = s.getLog(id); err != nil {
		return models.Profile{}, err
	}
	if p.ReasonsToQuit, err = s.getReasons(id); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

func (s *Store) ListProfiles() ([]models.Profile, error) {
	rows, err := s.query("SELECT id FROM profiles ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	profiles := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProfile(id)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *Store) UpdateProfile(id string, upd models.ProfileUpdate) error {
	var sets []string
	var args []interface{}
	if upd.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *upd.DisplayName)
	}
	if upd.AddictionType != nil {
		sets = append(sets, "addiction_type = ?")
		args = append(args, string(*upd.AddictionType))
	}
	if upd.QuitDate != nil {
		sets = append(sets, "quit_date = ?")
		args = append(args, formatTime(*upd.QuitDate))
	}
	if upd.DailySpending != nil {
		sets = append(sets, "daily_spending = ?")
		args = append(args, *upd.DailySpending)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(now()), id)

	return s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		res, err := s.txExec(tx, "UPDATE profiles SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
		if err := requireAffected(res, "profile", id); err != nil {
			return nil, err
		}
		return []storage.Change{storage.NewChange(storage.CollectionProfiles, id, storage.ChangeUpdated)}, nil
	})
}

func (s *Store) SaveLogEntry(userID string, entry models.LogEntry, progress models.ProgressUpdate) error {
	return s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		res, err := s.txExec(tx, `
			UPDATE profiles
			SET current_streak = ?, longest_streak = ?, points = points + ?, updated_at = ?
			WHERE id = ?`,
			progress.CurrentStreak, progress.LongestStreak, progress.PointsDelta, formatTime(now()), userID)
		if err != nil {
			return nil, fmt.Errorf("failed to update progress: %w", err)
		}
		if err := requireAffected(res, "profile", userID); err != nil {
			return nil, err
		}
		if err := s.upsertLogEntry(tx, userID, entry); err != nil {
			return nil, err
		}
		return []storage.Change{storage.NewChange(storage.CollectionProfiles, userID, storage.ChangeUpdated)}, nil
	})
}

func (s *Store) SetStreak(userID string, current, longest int) error {
	return s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		res, err := s.txExec(tx, `
			UPDATE profiles SET current_streak = ?, longest_streak = ?, updated_at = ?
			WHERE id = ?`,
			current, longest, formatTime(now()), userID)
		if err != nil {
			return nil, fmt.Errorf("failed to update streak: %w", err)
		}
		if err := requireAffected(res, "profile", userID); err != nil {
			return nil, err
		}
		return []storage.Change{storage.NewChange(storage.CollectionProfiles, userID, storage.ChangeUpdated)}, nil
	})
}

func (s *Store) AddReason(userID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperrors.New(apperrors.KindValidation, "reason cannot be empty")
	}
	return s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		if err := s.touchProfile(tx, userID); err != nil {
			return nil, err
		}
		if err := s.insertReason(tx, userID, reason); err != nil {
			return nil, err
		}
		return []storage.Change{storage.NewChange(storage.CollectionProfiles, userID, storage.ChangeUpdated)}, nil
	})
}

func (s *Store) RemoveReason(userID, reason string) error {
	return s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		if err := s.touchProfile(tx, userID); err != nil {
			return nil, err
		}
		if _, err := s.txExec(tx, "DELETE FROM reasons_to_quit WHERE user_id = ? AND reason = ?", userID, reason); err != nil {
			return nil, fmt.Errorf("failed to remove reason: %w", err)
		}
		return []storage.Change{storage.NewChange(storage.CollectionProfiles, userID, storage.ChangeUpdated)}, nil
	})
}

func (s *Store) touchProfile(tx *sql.Tx, userID string) error {
	res, err := s.txExec(tx, "UPDATE profiles SET updated_at = ? WHERE id = ?", formatTime(now()), userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return requireAffected(res, "profile", userID)
}

func (s *Store) upsertLogEntry(tx *sql.Tx, userID string, e models.LogEntry) error {
	_, err := s.txExec(tx, `
		INSERT INTO consumption_log (user_id, day, consumed, notes, logged_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET
			consumed = excluded.consumed,
			notes = excluded.notes,
			logged_at = excluded.logged_at`,
		userID, e.Date, e.Consumed, e.Notes, formatTime(now()))
	if err != nil {
		return fmt.Errorf("failed to save log entry for %s: %w", e.Date, err)
	}
	return nil
}

// insertReason is a set-union: an existing identical reason is left alone
func (s *Store) insertReason(tx *sql.Tx, userID, reason string) error {
	_, err := s.txExec(tx, `
		INSERT INTO reasons_to_quit (user_id, reason, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, reason) DO NOTHING`,
		userID, reason, formatTime(now()))
	if err != nil {
		return fmt.Errorf("failed to add reason: %w", err)
	}
	return nil
}

func (s *Store) getLog(userID string) ([]models.LogEntry, error) {
	rows, err := s.query(`
		SELECT day, consumed, notes FROM consumption_log
		WHERE user_id = ? ORDER BY logged_at, day`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query consumption log: %w", err)
	}
	defer rows.Close()

	log := []models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.Date, &e.Consumed, &e.Notes); err != nil {
			return nil, err
		}
		log = append(log, e)
	}
	return log, rows.Err()
}

func (s *Store) getReasons(userID string) ([]string, error) {
	rows, err := s.query(`
		SELECT reason FROM reasons_to_quit
		WHERE user_id = ? ORDER BY created_at, reason`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reasons: %w", err)
	}
	defer rows.Close()

	reasons := []string{}
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		reasons = append(reasons, r)
	}
	return reasons, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (models.Profile, error) {
	var p models.Profile
	var addiction, createdAt, updatedAt string
	var quitDate sql.NullString
	err := row.Scan(&p.ID, &p.DisplayName, &p.Email, &addiction, &quitDate, &p.DailySpending,
		&p.CurrentStreak, &p.LongestStreak, &p.Points, &createdAt, &updatedAt)
	if err != nil {
		return models.Profile{}, err
	}

	p.AddictionType = constants.AddictionType(addiction)
	if quitDate.Valid {
		t, err := parseTime("quit_date", quitDate.String)
		if err != nil {
			return models.Profile{}, err
		}
		p.QuitDate = &t
	}
	if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Profile{}, err
	}
	if p.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}
