package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cohort/internal/rules"
	"cohort/internal/space/models"
	"cohort/internal/space/service/mocks"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/store_mock.go -package=mocks

var testNow = time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func testSpace() *models.Space {
	return &models.Space{
		ID:             5,
		Name:           "Teens Space",
		OrganizationID: 1,
		AgeGroupID:     2,
		IsActive:       true,
	}
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func TestGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	svc := New(store)

	t.Run("returns space with count", func(t *testing.T) {
		store.EXPECT().FindByID(gomock.Any(), id.SpaceID(5)).Return(testSpace(), nil)
		store.EXPECT().ParticipantCount(gomock.Any(), id.SpaceID(5)).Return(12, nil)

		sp, count, err := svc.Get(testCtx(), 5)
		require.NoError(t, err)
		assert.Equal(t, "Teens Space", sp.Name)
		assert.Equal(t, 12, count)
	})

	t.Run("unknown space is not found", func(t *testing.T) {
		store.EXPECT().FindByID(gomock.Any(), id.SpaceID(9)).Return(nil, sentinel.ErrNotFound)

		_, _, err := svc.Get(testCtx(), 9)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("store failures wrap as internal", func(t *testing.T) {
		store.EXPECT().FindByID(gomock.Any(), id.SpaceID(5)).Return(nil, errors.New("connection reset"))

		_, _, err := svc.Get(testCtx(), 5)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	svc := New(store)

	t.Run("applies provided fields and stamps updated_at", func(t *testing.T) {
		store.EXPECT().FindByID(gomock.Any(), id.SpaceID(5)).Return(testSpace(), nil)
		store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, sp *models.Space) error {
				assert.Equal(t, "Renamed", sp.Name)
				assert.False(t, sp.IsActive)
				assert.Equal(t, testNow, sp.UpdatedAt)
				return nil
			})

		sp, err := svc.Update(testCtx(), 5, UpdateRequest{
			Name:     strptr("Renamed"),
			IsActive: boolptr(false),
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", sp.Name)
	})

	t.Run("rules document is replaced wholesale", func(t *testing.T) {
		limit := 50
		store.EXPECT().FindByID(gomock.Any(), id.SpaceID(5)).Return(testSpace(), nil)
		store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		sp, err := svc.Update(testCtx(), 5, UpdateRequest{
			Rules: &rules.SpaceAccessRules{MaxParticipants: &limit},
		})
		require.NoError(t, err)
		require.NotNil(t, sp.AccessRules.MaxParticipants)
		assert.Equal(t, 50, *sp.AccessRules.MaxParticipants)
	})

	t.Run("invalid name is rejected before the store write", func(t *testing.T) {
		store.EXPECT().FindByID(gomock.Any(), id.SpaceID(5)).Return(testSpace(), nil)

		_, err := svc.Update(testCtx(), 5, UpdateRequest{Name: strptr("X")})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, dErrors.FieldsOf(err), "name")
	})
}
