// Package artifact uploads the rendered text of saved contracts to object
// storage and hands out short-lived download links.
package artifact

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"contratos.app/internal/contract"
	"contratos.app/internal/ids"
	"contratos.app/internal/obs"
)

const (
	contentType = "text/plain; charset=utf-8"
	defaultTTL  = 15 * time.Minute
)

// ErrNoArtifact is returned by Link for records saved without an upload.
var ErrNoArtifact = errors.New("artifact: record has no artifact")

// Store is the object storage the archive writes to.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Inserter is the write half of contract.Store.
type Inserter interface {
	Insert(ctx context.Context, rec contract.NewRecord) (contract.Record, error)
}

// Archive renders and stores contracts alongside their records.
type Archive struct {
	store Store
	ttl   time.Duration
}

// NewArchive returns an archive whose links expire after ttl (15 minutes when
// ttl is not positive).
func NewArchive(store Store, ttl time.Duration) *Archive {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Archive{store: store, ttl: ttl}
}

// Key is the object key for a new artifact of owner.
func Key(ownerID string) string {
	return "contracts/" + ownerID + "/" + ids.New() + ".txt"
}

// Wrap returns an Inserter that uploads the rendered contract before the
// record is inserted and stores the object key as the record's artifact ref.
// Upload failures are logged and the record is saved without a ref.
func (a *Archive) Wrap(next Inserter) Inserter {
	return &archivingInserter{archive: a, next: next}
}

type archivingInserter struct {
	archive *Archive
	next    Inserter
}

func (i *archivingInserter) Insert(ctx context.Context, rec contract.NewRecord) (contract.Record, error) {
	if err := rec.Validate(); err != nil {
		return contract.Record{}, err
	}
	if rec.ArtifactRef == nil {
		if key, ok := i.archive.upload(ctx, rec); ok {
			rec.ArtifactRef = &key
		}
	}
	out, err := i.next.Insert(ctx, rec)
	if err != nil && rec.ArtifactRef != nil {
		i.archive.remove(ctx, *rec.ArtifactRef)
	}
	return out, err
}

func (a *Archive) upload(ctx context.Context, rec contract.NewRecord) (string, bool) {
	d, err := contract.DecodeDraft(rec.Payload)
	if err != nil {
		obs.Logger().Warn("artifact_render_failed", zap.String("owner_id", rec.OwnerID), zap.Error(err))
		return "", false
	}
	key := Key(rec.OwnerID)
	if err := a.store.Put(ctx, key, []byte(contract.Preview(d)), contentType); err != nil {
		obs.Logger().Warn("artifact_upload_failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return key, true
}

// Link presigns a download URL for the record's artifact.
func (a *Archive) Link(ctx context.Context, rec contract.Record) (string, error) {
	if rec.ArtifactRef == nil || *rec.ArtifactRef == "" {
		return "", ErrNoArtifact
	}
	return a.store.PresignGet(ctx, *rec.ArtifactRef, a.ttl)
}

// Remove deletes the record's artifact, if any. Failures are logged only; the
// record itself is already gone.
func (a *Archive) Remove(ctx context.Context, rec contract.Record) {
	if rec.ArtifactRef == nil || *rec.ArtifactRef == "" {
		return
	}
	a.remove(ctx, *rec.ArtifactRef)
}

func (a *Archive) remove(ctx context.Context, key string) {
	if err := a.store.Delete(ctx, key); err != nil {
		obs.Logger().Warn("artifact_delete_failed", zap.String("key", key), zap.Error(err))
	}
}
