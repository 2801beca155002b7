package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/service/mocks"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

type fixture struct {
	orders   *mocks.MockOrderStore
	tracking *mocks.MockTrackingStore
	svc      *StatusService
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		orders:   mocks.NewMockOrderStore(ctrl),
		tracking: mocks.NewMockTrackingStore(ctrl),
	}
	f.svc = NewStatusService(f.orders, f.tracking, logger.NewNop(), opts...)
	return f
}

func TestAdvance_TerminalStatusesWriteNothing(t *testing.T) {
	t.Parallel()

	for _, status := range []models.Status{models.StatusCancelled, models.StatusDelivered} {
		status := status
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()
			// no EXPECT calls: any repository call fails the test
			f := newFixture(t)

			res, err := f.svc.Advance(context.Background(), &models.Order{DocID: "d1", Status: status, TrackingID: "T1"})
			assert.NoError(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestAdvance_WritesSuccessorExactlyOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from models.Status
		want models.Status
	}{
		{from: "", want: models.StatusConfirmed},
		{from: models.StatusNew, want: models.StatusConfirmed},
		{from: models.StatusConfirmed, want: models.StatusPreparing},
		{from: models.StatusPreparing, want: models.StatusReady},
		{from: models.StatusReady, want: models.StatusDelivered},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("from %q", tt.from), func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			order := &models.Order{DocID: "d1", Folio: "1001", Status: tt.from}

			f.orders.EXPECT().UpdateStatus(gomock.Any(), "d1", tt.want).Return(nil).Times(1)
			f.orders.EXPECT().Get(gomock.Any(), "d1").Return(&models.Order{DocID: "d1", Folio: "1001", Status: tt.want}, nil)

			res, err := f.svc.Advance(context.Background(), order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, TrackingSkipped, res.Tracking)
		})
	}
}

func TestSetStatus_CallOrderWhenTrackingMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	order := &models.Order{DocID: "d1", Folio: "1001", Status: models.StatusNew}
	fresh := &models.Order{DocID: "d1", Folio: "1001", Status: models.StatusConfirmed, TrackingID: "T1", Quantity: 2, Total: 30}

	gomock.InOrder(
		f.orders.EXPECT().UpdateStatus(gomock.Any(), "d1", models.StatusConfirmed).Return(nil),
		f.orders.EXPECT().Get(gomock.Any(), "d1").Return(fresh, nil),
		f.tracking.EXPECT().Exists(gomock.Any(), "T1").Return(false, nil),
		f.tracking.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, tr *models.Tracking) error {
				assert.Equal(t, "T1", tr.TrackingID)
				assert.Equal(t, models.StatusConfirmed, tr.Status)
				assert.Equal(t, "1001", tr.Folio)
				assert.Equal(t, 2, tr.Quantity)
				assert.Equal(t, 30.0, tr.Total)
				assert.Equal(t, models.MethodPickup, tr.Method)
				return nil
			}),
	)

	res, err := f.svc.SetStatus(context.Background(), order, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, TrackingCreated, res.Tracking)
	assert.Equal(t, "T1", res.TrackingID)
}

func TestSetStatus_CallOrderWhenTrackingExists(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	order := &models.Order{DocID: "d2", Folio: "1002", Status: models.StatusReady, TrackingID: "T2"}

	gomock.InOrder(
		f.orders.EXPECT().UpdateStatus(gomock.Any(), "d2", models.StatusDelivered).Return(nil),
		f.orders.EXPECT().Get(gomock.Any(), "d2").Return(&models.Order{DocID: "d2", Folio: "1002", TrackingID: "T2"}, nil),
		f.tracking.EXPECT().Exists(gomock.Any(), "T2").Return(true, nil),
		f.tracking.EXPECT().UpdateStatus(gomock.Any(), "T2", models.StatusDelivered).Return(nil),
	)

	res, err := f.svc.Advance(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, TrackingUpdated, res.Tracking)
}

func TestSetStatus_UsesTrackingIDFromReRead(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// the caller's copy predates the tracking id being assigned
	order := &models.Order{DocID: "d1", Folio: "1001"}

	gomock.InOrder(
		f.orders.EXPECT().UpdateStatus(gomock.Any(), "d1", models.StatusConfirmed).Return(nil),
		f.orders.EXPECT().Get(gomock.Any(), "d1").Return(&models.Order{DocID: "d1", Folio: "1001", TrackingID: "T9"}, nil),
		f.tracking.EXPECT().Exists(gomock.Any(), "T9").Return(true, nil),
		f.tracking.EXPECT().UpdateStatus(gomock.Any(), "T9", models.StatusConfirmed).Return(nil),
	)

	res, err := f.svc.Advance(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "T9", res.TrackingID)
}

func TestSetStatus_MissingIdentityWritesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	res, err := f.svc.SetStatus(context.Background(), &models.Order{Folio: "1001", TrackingID: "T1"}, models.StatusConfirmed)
	assert.Nil(t, res)
	assert.True(t, apperrors.Is(err, apperrors.KindMissingIdentity))
}

func TestSetStatus_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.SetStatus(context.Background(), &models.Order{DocID: "d1"}, models.Status("shipped"))
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))
}

func TestSetStatus_OrderWriteFailureStopsEverything(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.orders.EXPECT().UpdateStatus(gomock.Any(), "d1", models.StatusConfirmed).
		Return(apperrors.NewPermissionDeniedError("denied"))

	res, err := f.svc.SetStatus(context.Background(), &models.Order{DocID: "d1"}, models.StatusConfirmed)
	assert.Nil(t, res)
	assert.True(t, apperrors.Is(err, apperrors.KindPermissionDenied))
}

func TestSetStatus_TrackingFailureIsPropagationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(f *fixture, cause error)
	}{
		{
			name: "re-read fails",
			setup: func(f *fixture, cause error) {
				f.orders.EXPECT().Get(gomock.Any(), "d1").Return(nil, cause)
			},
		},
		{
			name: "exists fails",
			setup: func(f *fixture, cause error) {
				f.orders.EXPECT().Get(gomock.Any(), "d1").Return(&models.Order{DocID: "d1", TrackingID: "T1"}, nil)
				f.tracking.EXPECT().Exists(gomock.Any(), "T1").Return(false, cause)
			},
		},
		{
			name: "update fails",
			setup: func(f *fixture, cause error) {
				f.orders.EXPECT().Get(gomock.Any(), "d1").Return(&models.Order{DocID: "d1", TrackingID: "T1"}, nil)
				f.tracking.EXPECT().Exists(gomock.Any(), "T1").Return(true, nil)
				f.tracking.EXPECT().UpdateStatus(gomock.Any(), "T1", models.StatusPreparing).Return(cause)
			},
		},
		{
			name: "create fails",
			setup: func(f *fixture, cause error) {
				f.orders.EXPECT().Get(gomock.Any(), "d1").Return(&models.Order{DocID: "d1", TrackingID: "T1"}, nil)
				f.tracking.EXPECT().Exists(gomock.Any(), "T1").Return(false, nil)
				f.tracking.EXPECT().Create(gomock.Any(), gomock.Any()).Return(cause)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			cause := errors.New("store went away")

			// the order write is never rolled back: no second UpdateStatus is expected
			f.orders.EXPECT().UpdateStatus(gomock.Any(), "d1", models.StatusPreparing).Return(nil).Times(1)
			tt.setup(f, cause)

			res, err := f.svc.SetStatus(context.Background(), &models.Order{DocID: "d1", Status: models.StatusConfirmed}, models.StatusPreparing)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.KindPropagation))
			assert.ErrorIs(t, err, cause)

			require.NotNil(t, res)
			assert.Equal(t, models.StatusPreparing, res.Status)
			assert.Equal(t, TrackingFailed, res.Tracking)
		})
	}
}

func TestSetStatus_PublishesAndNotifies(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockEventPublisher(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	f := newFixture(t, WithPublisher(publisher), WithNotifier(notifier))

	f.orders.EXPECT().UpdateStatus(gomock.Any(), "d1", models.StatusCancelled).Return(nil)
	f.orders.EXPECT().Get(gomock.Any(), "d1").Return(&models.Order{DocID: "d1", Folio: "1001"}, nil)

	publisher.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev *models.StatusChangedEvent) error {
			assert.Equal(t, models.EventTypeStatusChanged, ev.EventType)
			assert.Equal(t, "d1", ev.AggregateID)
			assert.Equal(t, models.StatusPreparing, ev.Data.OldStatus)
			assert.Equal(t, models.StatusCancelled, ev.Data.NewStatus)
			assert.Equal(t, string(TrackingSkipped), ev.Data.Propagation)
			// publishing is best effort
			return errors.New("broker unavailable")
		})
	notifier.EXPECT().Post("Order 1001 marked cancelled")

	res, err := f.svc.Cancel(context.Background(),
		&models.Order{DocID: "d1", Folio: "1001", Status: models.StatusPreparing},
		func() bool { return true })
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, res.Status)
}

func TestCancel(t *testing.T) {
	t.Parallel()

	t.Run("declined writes nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		asked := false

		res, err := f.svc.Cancel(context.Background(), &models.Order{DocID: "d1"}, func() bool {
			asked = true
			return false
		})
		assert.NoError(t, err)
		assert.Nil(t, res)
		assert.True(t, asked)
	})

	t.Run("terminal order is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.Cancel(context.Background(),
			&models.Order{DocID: "d1", Status: models.StatusDelivered},
			func() bool { return true })
		assert.True(t, apperrors.Is(err, apperrors.KindInvalidTransition))
	})

	t.Run("confirmed cancels", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.orders.EXPECT().UpdateStatus(gomock.Any(), "d1", models.StatusCancelled).Return(nil)
		f.orders.EXPECT().Get(gomock.Any(), "d1").Return(&models.Order{DocID: "d1"}, nil)

		res, err := f.svc.Cancel(context.Background(), &models.Order{DocID: "d1", Status: models.StatusNew},
			func() bool { return true })
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, res.Status)
	})
}

func TestProgress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Progress(""))
	assert.Equal(t, 0, Progress(models.StatusNew))
	assert.Equal(t, 25, Progress(models.StatusConfirmed))
	assert.Equal(t, 50, Progress(models.StatusPreparing))
	assert.Equal(t, 75, Progress(models.StatusReady))
	assert.Equal(t, 100, Progress(models.StatusDelivered))
	assert.Equal(t, 100, Progress(models.StatusCancelled))
	assert.Equal(t, 0, Progress("unknown"))
}

func TestNextStatus(t *testing.T) {
	t.Parallel()

	next, ok := NextStatus("")
	assert.True(t, ok)
	assert.Equal(t, models.StatusConfirmed, next)

	_, ok = NextStatus(models.StatusDelivered)
	assert.False(t, ok)

	_, ok = NextStatus(models.StatusCancelled)
	assert.False(t, ok)
}
