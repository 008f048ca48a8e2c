package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	apperrors "github.com/julianstephens/rehab/internal/errors"
	"github.com/julianstephens/rehab/internal/models"
)

func (s *Store) CreateProfile(p models.Profile) error {
	if p.ID == "" {
		return apperrors.New(apperrors.KindValidation, "profile id is required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if p.Log == nil {
		p.Log = []models.LogEntry{}
	}
	if p.ReasonsToQuit == nil {
		p.ReasonsToQuit = []string{}
	}

	ctx, cancel := s.opCtx()
	defer cancel()
	_, err := s.profiles().Doc(p.ID).Create(ctx, p)
	return mapErr(err, "profile", p.ID)
}

func (s *Store) GetProfile(id string) (models.Profile, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	doc, err := s.profiles().Doc(id).Get(ctx)
	if err != nil {
		return models.Profile{}, mapErr(err, "profile", id)
	}
	return decodeProfile(doc)
}

func (s *Store) ListProfiles() ([]models.Profile, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	profiles := []models.Profile{}
	err := eachDoc(s.profiles().OrderBy("createdAt", firestore.Asc).Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		p, err := decodeProfile(doc)
		if err != nil {
			return err
		}
		profiles = append(profiles, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func (s *Store) UpdateProfile(id string, upd models.ProfileUpdate) error {
	var updates []firestore.Update
	if upd.DisplayName != nil {
		updates = append(updates, firestore.Update{Path: "displayName", Value: *upd.DisplayName})
	}
	if upd.AddictionType != nil {
		updates = append(updates, firestore.Update{Path: "addictionType", Value: string(*upd.AddictionType)})
	}
	if upd.QuitDate != nil {
		updates = append(updates, firestore.Update{Path: "quitDate", Value: upd.QuitDate.UTC()})
	}
	if upd.DailySpending != nil {
		updates = append(updates, firestore.Update{Path: "dailySpending", Value: *upd.DailySpending})
	}
	return s.update(id, updates...)
}

// SaveLogEntry rewrites the embedded log inside a transaction so concurrent
// entries for other dates are not lost.
func (s *Store) SaveLogEntry(userID string, entry models.LogEntry, progress models.ProgressUpdate) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	ref := s.profiles().Doc(userID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return mapErr(err, "profile", userID)
		}
		p, err := decodeProfile(doc)
		if err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "consumptionLog", Value: models.UpsertLogEntry(p.Log, entry)},
			{Path: "streak", Value: progress.CurrentStreak},
			{Path: "longestStreak", Value: progress.LongestStreak},
			{Path: "points", Value: firestore.Increment(progress.PointsDelta)},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	return err
}

func (s *Store) SetStreak(userID string, current, longest int) error {
	return s.update(userID,
		firestore.Update{Path: "streak", Value: current},
		firestore.Update{Path: "longestStreak", Value: longest},
	)
}

func (s *Store) AddReason(userID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperrors.New(apperrors.KindValidation, "reason cannot be empty")
	}
	return s.update(userID, firestore.Update{Path: "reasonsToQuit", Value: firestore.ArrayUnion(reason)})
}

func (s *Store) RemoveReason(userID, reason string) error {
	return s.update(userID, firestore.Update{Path: "reasonsToQuit", Value: firestore.ArrayRemove(reason)})
}

// update applies field updates and stamps updatedAt. A missing profile is ErrNotFound.
func (s *Store) update(id string, updates ...firestore.Update) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now().UTC()})
	_, err := s.profiles().Doc(id).Update(ctx, updates)
	return mapErr(err, "profile", id)
}

func decodeProfile(doc *firestore.DocumentSnapshot) (models.Profile, error) {
	var p models.Profile
	if err := doc.DataTo(&p); err != nil {
		return models.Profile{}, fmt.Errorf("failed to decode profile %s: %w", doc.Ref.ID, err)
	}
	p.ID = doc.Ref.ID
	if p.Log == nil {
		p.Log = []models.LogEntry{}
	}
	if p.ReasonsToQuit == nil {
		p.ReasonsToQuit = []string{}
	}
	return p, nil
}
