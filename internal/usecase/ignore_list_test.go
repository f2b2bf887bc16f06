package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TickerPulse/internal/domain/models"
	"TickerPulse/internal/repository"
	"TickerPulse/internal/services/classifier"
)

type failingIgnoreStore struct{ items []string }

func (s failingIgnoreStore) Load(context.Context) ([]string, error) { return s.items, nil }
func (failingIgnoreStore) Save(context.Context, []string) error     { return errBoom }

func TestIgnoreListLoadDefaults(t *testing.T) {
	c := newTestClassifier(t)
	uc := NewIgnoreListUseCase(repository.NewFileIgnoreStore(filepath.Join(t.TempDir(), "ignore.json")), c, nil)

	require.NoError(t, uc.Load(context.Background()))
	assert.Equal(t, len(classifier.DefaultIgnored), c.Ignore().Len())
	assert.True(t, c.Ignore().Contains("YOLO"))
}

func TestIgnoreListAddPersistsAndSwaps(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ignore.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"DEFAULT_IGNORE_LIST": ["DD"]}`), 0o644))

	c := newTestClassifier(t)
	uc := NewIgnoreListUseCase(repository.NewFileIgnoreStore(path), c, nil)
	require.NoError(t, uc.Load(ctx))
	assert.Equal(t, []string{"GME"}, c.Classify("GME DD"))

	items, err := uc.Add(ctx, " gme", "AMC", "DD")
	require.NoError(t, err)
	assert.Equal(t, []string{"AMC", "DD", "GME"}, items)
	assert.Equal(t, items, uc.List())
	assert.Empty(t, c.Classify("GME AMC"))
	assert.Equal(t, []string{"TSLA"}, c.Classify("TSLA GME"))

	stored, err := repository.NewFileIgnoreStore(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, items, stored)
}

func TestIgnoreListAddRejectsBadInput(t *testing.T) {
	uc := NewIgnoreListUseCase(failingIgnoreStore{}, newTestClassifier(t), nil)

	_, err := uc.Add(context.Background())
	assert.ErrorIs(t, err, models.ErrMalformedInput)
	_, err = uc.Add(context.Background(), "GME", " ")
	assert.ErrorIs(t, err, models.ErrMalformedInput)
}

func TestIgnoreListSaveFailureKeepsActiveSet(t *testing.T) {
	c := newTestClassifier(t)
	uc := NewIgnoreListUseCase(failingIgnoreStore{items: []string{"DD"}}, c, nil)
	require.NoError(t, uc.Load(context.Background()))

	_, err := uc.Add(context.Background(), "GME")
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"DD"}, uc.List())
	assert.Equal(t, []string{"GME"}, c.Classify("GME"))
}
