package comment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/bazaar/internal/entity"
	"github.com/Additional-Code/bazaar/pkg/errorbank"
)

type fakeCommentStore struct {
	comments []entity.Comment
	err      error
}

func (f *fakeCommentStore) Create(_ context.Context, c *entity.Comment) error {
	if f.err != nil {
		return f.err
	}
	c.ID = int64(len(f.comments) + 1)
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeCommentStore) ListByProduct(_ context.Context, productID int64) ([]entity.Comment, error) {
	var out []entity.Comment
	for _, c := range f.comments {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeRewarder struct {
	grants int
	err    error
}

func (f *fakeRewarder) GrantComment(context.Context, int64, int64, int64) error {
	if f.err != nil {
		return f.err
	}
	f.grants++
	return nil
}

func newTestService(store *fakeCommentStore, rewards *fakeRewarder) *Service {
	return &Service{repo: store, points: rewards, logger: zap.NewNop()}
}

func TestCreateStoresAndRewards(t *testing.T) {
	store := &fakeCommentStore{}
	rewards := &fakeRewarder{}
	svc := newTestService(store, rewards)

	c := &entity.Comment{Content: "solid kettle", UserID: 42, ProductID: 7}
	require.NoError(t, svc.Create(context.Background(), c))

	require.Len(t, store.comments, 1)
	assert.False(t, store.comments[0].CreatedAt.IsZero())
	assert.Equal(t, 1, rewards.grants)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(&fakeCommentStore{}, &fakeRewarder{})

	for _, c := range []*entity.Comment{
		nil,
		{UserID: 42, ProductID: 7},
		{Content: "   ", UserID: 42, ProductID: 7},
		{Content: "hi", ProductID: 7},
		{Content: "hi", UserID: 42},
	} {
		err := svc.Create(context.Background(), c)
		require.Error(t, err)
		appErr := &errorbank.AppError{}
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	}
}

func TestCreateSurvivesRewardFailure(t *testing.T) {
	store := &fakeCommentStore{}
	rewards := &fakeRewarder{err: errors.New("ledger down")}
	svc := newTestService(store, rewards)

	c := &entity.Comment{Content: "still works", UserID: 42, ProductID: 7}
	require.NoError(t, svc.Create(context.Background(), c))
	assert.Len(t, store.comments, 1)
}

func TestCreateStoreFailureSkipsReward(t *testing.T) {
	store := &fakeCommentStore{err: errors.New("db down")}
	rewards := &fakeRewarder{}
	svc := newTestService(store, rewards)

	err := svc.Create(context.Background(), &entity.Comment{Content: "nope", UserID: 42, ProductID: 7})
	require.Error(t, err)
	assert.Equal(t, 0, rewards.grants)
}

func TestListByProduct(t *testing.T) {
	store := &fakeCommentStore{}
	svc := newTestService(store, &fakeRewarder{})

	require.NoError(t, svc.Create(context.Background(), &entity.Comment{Content: "a", UserID: 1, ProductID: 7}))
	require.NoError(t, svc.Create(context.Background(), &entity.Comment{Content: "b", UserID: 2, ProductID: 7}))
	require.NoError(t, svc.Create(context.Background(), &entity.Comment{Content: "c", UserID: 3, ProductID: 8}))

	comments, err := svc.ListByProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}
