package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"contratos.app/internal/contract"
	"contratos.app/internal/obs"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string]string
	putErr  error
}

func newMemStore() *memStore { return &memStore{objects: map[string]string{}} }

func (m *memStore) Put(_ context.Context, key string, body []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = string(body)
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *memStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://objects.test/" + key + "?ttl=" + ttl.String(), nil
}

type insertFunc func(ctx context.Context, rec contract.NewRecord) (contract.Record, error)

func (f insertFunc) Insert(ctx context.Context, rec contract.NewRecord) (contract.Record, error) {
	return f(ctx, rec)
}

func draftPayload(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(contract.Draft{
		ContractorName: "A", ContractedName: "B",
		ContractType: "Freelance", ContractObject: "Site", Value: "R$100",
	})
	require.NoError(t, err)
	return raw
}

func TestWrapUploadsRenderedContract(t *testing.T) {
	objects := newMemStore()
	archive := NewArchive(objects, time.Minute)
	records := contract.NewInMemory()

	rec, err := archive.Wrap(records).Insert(context.Background(), contract.NewRecord{
		OwnerID: "u1", Title: "Freelance - A e B", Payload: draftPayload(t),
	})
	require.NoError(t, err)
	require.NotNil(t, rec.ArtifactRef)
	assert.True(t, strings.HasPrefix(*rec.ArtifactRef, "contracts/u1/"))
	body := objects.objects[*rec.ArtifactRef]
	assert.Contains(t, body, "Freelance")
	assert.Contains(t, body, "R$100")

	link, err := archive.Link(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "https://objects.test/"+*rec.ArtifactRef+"?ttl=1m0s", link)

	archive.Remove(context.Background(), rec)
	assert.Empty(t, objects.objects)
}

func TestWrapSavesWithoutRefWhenUploadFails(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := obs.SetLogger(zap.New(core))
	defer restore()

	objects := newMemStore()
	objects.putErr = errors.New("bucket unavailable")
	archive := NewArchive(objects, 0)

	rec, err := archive.Wrap(contract.NewInMemory()).Insert(context.Background(), contract.NewRecord{
		OwnerID: "u1", Title: "t", Payload: draftPayload(t),
	})
	require.NoError(t, err)
	assert.Nil(t, rec.ArtifactRef)
	assert.Equal(t, 1, logs.FilterMessage("artifact_upload_failed").Len())

	_, err = archive.Link(context.Background(), rec)
	assert.ErrorIs(t, err, ErrNoArtifact)
}

func TestWrapRemovesUploadWhenInsertFails(t *testing.T) {
	objects := newMemStore()
	archive := NewArchive(objects, time.Minute)
	failing := insertFunc(func(context.Context, contract.NewRecord) (contract.Record, error) {
		return contract.Record{}, errors.New("db down")
	})

	_, err := archive.Wrap(failing).Insert(context.Background(), contract.NewRecord{
		OwnerID: "u1", Title: "t", Payload: draftPayload(t),
	})
	require.Error(t, err)
	assert.Empty(t, objects.objects)
}

func TestWrapRejectsInvalidRecordBeforeUpload(t *testing.T) {
	objects := newMemStore()
	_, err := NewArchive(objects, 0).Wrap(contract.NewInMemory()).Insert(context.Background(), contract.NewRecord{OwnerID: "u1"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	assert.Empty(t, objects.objects)
}
