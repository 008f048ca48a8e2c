package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/storage"
)

// Watch opens a snapshot listener. The initial snapshot is skipped so only
// writes after the call are delivered. A single document is watched
// directly; for chats that covers new messages because each append bumps
// the session's messageCount.
func (s *Store) Watch(ctx context.Context, ref storage.Ref, fn func(storage.Change)) (func(), error) {
	if _, err := storage.ParseCollection(string(ref.Collection)); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	col := s.client.Collection(string(ref.Collection))
	if ref.ID == "" {
		go s.watchQuery(ctx, ref.Collection, col.Query, fn)
	} else {
		go s.watchDoc(ctx, ref, col.Doc(ref.ID), fn)
	}
	return cancel, nil
}

func (s *Store) watchDoc(ctx context.Context, ref storage.Ref, doc *firestore.DocumentRef, fn func(storage.Change)) {
	it := doc.Snapshots(ctx)
	defer it.Stop()

	first := true
	existed := false
	for {
		snap, err := it.Next()
		if err != nil {
			logWatchEnd(err, ref)
			return
		}
		exists := snap.Exists()
		if first {
			first, existed = false, exists
			continue
		}

		kind := storage.ChangeUpdated
		switch {
		case !exists:
			kind = storage.ChangeDeleted
		case !existed:
			kind = storage.ChangeCreated
		}
		existed = exists
		fn(storage.Change{Ref: ref, Kind: kind, At: changeTime(snap.UpdateTime)})
	}
}

func (s *Store) watchQuery(ctx context.Context, col storage.Collection, q firestore.Query, fn func(storage.Change)) {
	it := q.Snapshots(ctx)
	defer it.Stop()

	first := true
	for {
		qs, err := it.Next()
		if err != nil {
			logWatchEnd(err, storage.Ref{Collection: col})
			return
		}
		if first {
			first = false
			continue
		}
		for _, ch := range qs.Changes {
			kind := storage.ChangeUpdated
			switch ch.Kind {
			case firestore.DocumentAdded:
				kind = storage.ChangeCreated
			case firestore.DocumentRemoved:
				kind = storage.ChangeDeleted
			}
			fn(storage.Change{Ref: storage.Ref{Collection: col, ID: ch.Doc.Ref.ID}, Kind: kind, At: changeTime(qs.ReadTime)})
		}
	}
}

func changeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func logWatchEnd(err error, ref storage.Ref) {
	if errors.Is(err, iterator.Done) || errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled {
		return
	}
	logger.Warn("Snapshot listener stopped", "collection", ref.Collection, "id", ref.ID, "error", err)
}
