package coupon_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/invisifeed/invisifeed/internal/coupon"
)

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	businessID := uuid.New()
	repo := coupon.NewMockRepository(ctrl)
	repo.EXPECT().ListCoupons(gomock.Any(), businessID, 10, 20).Return([]*coupon.Coupon{{}}, 21, nil)
	repo.EXPECT().ListCoupons(gomock.Any(), businessID, coupon.MaxPageSize, 0).Return(nil, 0, nil)

	svc := coupon.NewService(repo)

	got, err := svc.List(context.Background(), businessID, coupon.Page{Number: 3, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 21, got.Total)
	assert.Equal(t, 3, got.Pages)
	assert.Equal(t, 3, got.Page)

	got, err = svc.List(context.Background(), businessID, coupon.Page{Number: 0, Size: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 0, got.Pages)
}

func TestService_MarkUsedAndDelete(t *testing.T) {
	businessID, id := uuid.New(), uuid.New()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	type testCase struct {
		name      string
		call      func(svc *coupon.Service) error
		setupMock func(m *coupon.MockRepository)
		wantErr   error
	}

	markUsed := func(svc *coupon.Service) error {
		_, err := svc.MarkUsed(context.Background(), businessID, id)
		return err
	}

	deleteCoupon := func(svc *coupon.Service) error {
		return svc.Delete(context.Background(), businessID, id)
	}

	tests := []testCase{
		{
			name: "MarkUnused",
			call: markUsed,
			setupMock: func(m *coupon.MockRepository) {
				m.EXPECT().GetCoupon(gomock.Any(), businessID, id).Return(&coupon.Coupon{ID: id}, nil)
				m.EXPECT().MarkUsed(gomock.Any(), id, now).Return(nil)
			},
		},
		{
			name: "MarkAlreadyUsed",
			call: markUsed,
			setupMock: func(m *coupon.MockRepository) {
				m.EXPECT().GetCoupon(gomock.Any(), businessID, id).Return(&coupon.Coupon{ID: id, IsUsed: true}, nil)
			},
			wantErr: coupon.ErrCouponUsed,
		},
		{
			name: "DeleteUnused",
			call: deleteCoupon,
			setupMock: func(m *coupon.MockRepository) {
				m.EXPECT().GetCoupon(gomock.Any(), businessID, id).Return(&coupon.Coupon{ID: id}, nil)
				m.EXPECT().DeleteCoupon(gomock.Any(), businessID, id).Return(nil)
			},
		},
		{
			name: "DeleteUsed",
			call: deleteCoupon,
			setupMock: func(m *coupon.MockRepository) {
				m.EXPECT().GetCoupon(gomock.Any(), businessID, id).Return(&coupon.Coupon{ID: id, IsUsed: true}, nil)
			},
			wantErr: coupon.ErrCouponUsed,
		},
		{
			name: "DeleteMissing",
			call: deleteCoupon,
			setupMock: func(m *coupon.MockRepository) {
				m.EXPECT().GetCoupon(gomock.Any(), businessID, id).Return(nil, coupon.ErrNotFound)
			},
			wantErr: coupon.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := coupon.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := coupon.NewService(repo).WithClock(func() time.Time { return now })
			err := tt.call(svc)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_Redeem(t *testing.T) {
	invoiceID := uuid.New()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	stored := func() *coupon.Coupon {
		return &coupon.Coupon{ID: uuid.New(), InvoiceID: invoiceID, Code: "SAVE10-AB2C", ExpiryDate: now.AddDate(0, 0, 5)}
	}

	t.Run("Redeems", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		c := stored()
		repo := coupon.NewMockRepository(ctrl)
		repo.EXPECT().GetByInvoice(gomock.Any(), invoiceID).Return(c, nil)
		repo.EXPECT().MarkUsed(gomock.Any(), c.ID, now).Return(nil)

		got, err := coupon.NewService(repo).WithClock(func() time.Time { return now }).
			Redeem(context.Background(), invoiceID, "save10-ab2c")
		require.NoError(t, err)
		assert.True(t, got.IsUsed)
	})

	t.Run("WrongCode", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := coupon.NewMockRepository(ctrl)
		repo.EXPECT().GetByInvoice(gomock.Any(), invoiceID).Return(stored(), nil)

		_, err := coupon.NewService(repo).Redeem(context.Background(), invoiceID, "SAVE20")
		assert.ErrorIs(t, err, coupon.ErrCodeMismatch)
	})

	t.Run("Expired", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := coupon.NewMockRepository(ctrl)
		repo.EXPECT().GetByInvoice(gomock.Any(), invoiceID).Return(stored(), nil)

		_, err := coupon.NewService(repo).WithClock(func() time.Time { return now.AddDate(0, 1, 0) }).
			Redeem(context.Background(), invoiceID, "SAVE10-AB2C")
		assert.ErrorIs(t, err, coupon.ErrCouponExpired)
	})
}
