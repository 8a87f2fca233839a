package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"expo-orders/internal/feed"
	"expo-orders/internal/model"
	"expo-orders/internal/sequence"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) ListAll(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) NextSerial(ctx context.Context, dayKey string) (int, error) {
	args := m.Called(ctx, dayKey)
	return args.Int(0), args.Error(1)
}

// MockCatalogRepository is a mock implementation of CatalogRepository.
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetAll(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetByCodes(ctx context.Context, codes []string) ([]model.Product, error) {
	args := m.Called(ctx, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockCatalogRepository) ValidateCodesExist(ctx context.Context, codes []string) error {
	args := m.Called(ctx, codes)
	return args.Error(0)
}

func newTestService(orderRepo *MockOrderRepository, catalogRepo *MockCatalogRepository) *orderService {
	logger := zerolog.Nop()
	gen := sequence.New("expo", time.UTC, orderRepo, logger)
	hub := feed.NewHub(logger)
	svc := NewOrderService(orderRepo, catalogRepo, gen, hub, time.UTC, logger).(*orderService)
	svc.now = func() time.Time {
		return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	}
	return svc
}

func validRequest() *model.OrderRequest {
	return &model.OrderRequest{
		Name:           "山田太郎",
		PostalCode:     "590-0521",
		Address:        "大阪府泉南市樽井1-1-1",
		Phone:          "072-000-0000",
		SameAsReceiver: true,
		DeliveryDate:   "2024-01-20",
		DeliveryTime:   model.DeliveryTimeMorning,
		Items: []model.OrderItemRequest{
			{Code: "035604", Quantity: 2},
			{Code: "036806", Quantity: 1},
		},
	}
}

func TestOrderService_Submit_Success(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	codes := []string{"035604", "036806"}
	catalogRepo.On("ValidateCodesExist", ctx, codes).Return(nil)
	catalogRepo.On("GetByCodes", ctx, codes).Return([]model.Product{
		{Code: "035604", Name: "月化粧(4個入)"},
		{Code: "036806", Name: "月化粧サブレ(6枚入)"},
	}, nil)
	orderRepo.On("NextSerial", ctx, "20240115").Return(3, nil)
	orderRepo.On("Save", ctx, mock.AnythingOfType("*model.Order")).Return(nil)
	orderRepo.On("ListAll", ctx).Return([]model.Order{}, nil)

	order, err := svc.Submit(ctx, validRequest())

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, "expo20240115-003", order.OrderNumber)
	require.Len(t, order.Items, 2)
	// Item names come from the catalog, not the request.
	assert.Equal(t, "月化粧(4個入)", order.Items[0].Name)
	assert.Equal(t, 2, order.Items[0].Quantity)

	orderRepo.AssertExpectations(t)
	catalogRepo.AssertExpectations(t)
}

func TestOrderService_Submit_SameAsReceiverCopiesCustomerFields(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	req := validRequest()
	req.SameAsReceiver = true
	// Stale receiver input left behind in the form must be ignored.
	req.ReceiverName = "別の名前"
	req.ReceiverPostalCode = "000-0000"

	catalogRepo.On("ValidateCodesExist", ctx, mock.Anything).Return(nil)
	catalogRepo.On("GetByCodes", ctx, mock.Anything).Return([]model.Product{
		{Code: "035604", Name: "月化粧(4個入)"},
		{Code: "036806", Name: "月化粧サブレ(6枚入)"},
	}, nil)
	orderRepo.On("NextSerial", ctx, "20240115").Return(1, nil)
	orderRepo.On("Save", ctx, mock.AnythingOfType("*model.Order")).Return(nil)
	orderRepo.On("ListAll", ctx).Return([]model.Order{}, nil)

	order, err := svc.Submit(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, req.Name, order.ReceiverName)
	assert.Equal(t, req.PostalCode, order.ReceiverPostalCode)
	assert.Equal(t, req.Address, order.ReceiverAddress)
	assert.Equal(t, req.Phone, order.ReceiverPhone)
}

func TestOrderService_Submit_SeparateReceiver(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	req := validRequest()
	req.SameAsReceiver = false
	req.ReceiverName = "鈴木花子"
	req.ReceiverPostalCode = "100-0001"
	req.ReceiverAddress = "東京都千代田区1-1"
	req.ReceiverPhone = "03-0000-0000"

	catalogRepo.On("ValidateCodesExist", ctx, mock.Anything).Return(nil)
	catalogRepo.On("GetByCodes", ctx, mock.Anything).Return([]model.Product{
		{Code: "035604", Name: "月化粧(4個入)"},
		{Code: "036806", Name: "月化粧サブレ(6枚入)"},
	}, nil)
	orderRepo.On("NextSerial", ctx, "20240115").Return(1, nil)
	orderRepo.On("Save", ctx, mock.AnythingOfType("*model.Order")).Return(nil)
	orderRepo.On("ListAll", ctx).Return([]model.Order{}, nil)

	order, err := svc.Submit(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, "鈴木花子", order.ReceiverName)
	assert.Equal(t, "100-0001", order.ReceiverPostalCode)
}

func TestOrderService_Submit_EmptyCartRejectedWithoutWrite(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	req := validRequest()
	req.Items = []model.OrderItemRequest{
		{Code: "035604", Quantity: 0},
		{Code: "036806", Quantity: 0},
	}

	order, err := svc.Submit(ctx, req)

	require.ErrorIs(t, err, model.ErrEmptyCart)
	assert.Nil(t, order)
	// No store interaction of any kind: no save, no serial minted.
	orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "NextSerial", mock.Anything, mock.Anything)
}

func TestOrderService_Submit_ZeroQuantityRowsDropped(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	req := validRequest()
	req.Items = []model.OrderItemRequest{
		{Code: "035604", Quantity: 0},
		{Code: "036806", Quantity: 3},
	}

	catalogRepo.On("ValidateCodesExist", ctx, []string{"036806"}).Return(nil)
	catalogRepo.On("GetByCodes", ctx, []string{"036806"}).Return([]model.Product{
		{Code: "036806", Name: "月化粧サブレ(6枚入)"},
	}, nil)
	orderRepo.On("NextSerial", ctx, "20240115").Return(1, nil)
	orderRepo.On("Save", ctx, mock.AnythingOfType("*model.Order")).Return(nil)
	orderRepo.On("ListAll", ctx).Return([]model.Order{}, nil)

	order, err := svc.Submit(ctx, req)

	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "036806", order.Items[0].Code)
}

func TestOrderService_Submit_NegativeQuantityRejected(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	req := validRequest()
	req.Items[0].Quantity = -1

	_, err := svc.Submit(context.Background(), req)

	require.ErrorIs(t, err, model.ErrInvalidQuantity)
	orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderService_Submit_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*model.OrderRequest)
		errMsg string
	}{
		{
			name:   "missing name",
			modify: func(r *model.OrderRequest) { r.Name = "" },
			errMsg: "name is required",
		},
		{
			name:   "whitespace postal code",
			modify: func(r *model.OrderRequest) { r.PostalCode = "   " },
			errMsg: "postalCode is required",
		},
		{
			name: "missing receiver fields when not same",
			modify: func(r *model.OrderRequest) {
				r.SameAsReceiver = false
				r.ReceiverName = ""
			},
			errMsg: "receiverName is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := new(MockOrderRepository)
			catalogRepo := new(MockCatalogRepository)
			svc := newTestService(orderRepo, catalogRepo)

			req := validRequest()
			tt.modify(req)

			_, err := svc.Submit(context.Background(), req)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_Submit_InvalidDeliveryTime(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	req := validRequest()
	req.DeliveryTime = "深夜"

	_, err := svc.Submit(context.Background(), req)

	require.ErrorIs(t, err, model.ErrInvalidDeliveryTime)
}

func TestOrderService_Submit_UnknownItemCode(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	catalogRepo.On("ValidateCodesExist", ctx, mock.Anything).Return(model.ErrUnknownProduct)

	_, err := svc.Submit(ctx, validRequest())

	require.ErrorIs(t, err, model.ErrUnknownProduct)
	orderRepo.AssertNotCalled(t, "NextSerial", mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderService_Submit_SaveFailureWastesSerial(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	catalogRepo.On("ValidateCodesExist", ctx, mock.Anything).Return(nil)
	catalogRepo.On("GetByCodes", ctx, mock.Anything).Return([]model.Product{
		{Code: "035604", Name: "月化粧(4個入)"},
		{Code: "036806", Name: "月化粧サブレ(6枚入)"},
	}, nil)
	orderRepo.On("NextSerial", ctx, "20240115").Return(7, nil)
	orderRepo.On("Save", ctx, mock.AnythingOfType("*model.Order")).Return(errors.New("connection reset"))

	notified := 0
	cancel := svc.Subscribe(func([]model.Order) { notified++ })
	defer cancel()

	order, err := svc.Submit(ctx, validRequest())

	require.Error(t, err)
	assert.Nil(t, order)
	// The serial was minted and is gone; no feed broadcast for a failed write.
	orderRepo.AssertCalled(t, "NextSerial", ctx, "20240115")
	assert.Equal(t, 0, notified)
}

func TestOrderService_Submit_BroadcastsAfterSave(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	stored := []model.Order{{ID: uuid.New(), OrderNumber: "expo20240115-001"}}

	catalogRepo.On("ValidateCodesExist", ctx, mock.Anything).Return(nil)
	catalogRepo.On("GetByCodes", ctx, mock.Anything).Return([]model.Product{
		{Code: "035604", Name: "月化粧(4個入)"},
		{Code: "036806", Name: "月化粧サブレ(6枚入)"},
	}, nil)
	orderRepo.On("NextSerial", ctx, "20240115").Return(1, nil)
	orderRepo.On("Save", ctx, mock.AnythingOfType("*model.Order")).Return(nil)
	orderRepo.On("ListAll", ctx).Return(stored, nil)

	var got []model.Order
	cancel := svc.Subscribe(func(orders []model.Order) { got = orders })
	defer cancel()

	_, err := svc.Submit(ctx, validRequest())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "expo20240115-001", got[0].OrderNumber)
}

func TestOrderService_List_Consolidates(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	dup := uuid.New()
	orderRepo.On("ListAll", ctx).Return([]model.Order{
		{ID: dup, OrderNumber: "old"},
		{ID: uuid.New(), OrderNumber: "other"},
		{ID: dup, OrderNumber: "new"},
	}, nil)

	orders, err := svc.List(ctx)

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "other", orders[0].OrderNumber)
	assert.Equal(t, "new", orders[1].OrderNumber)
}

func TestOrderService_Delete(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	id := uuid.New()
	orderRepo.On("Delete", ctx, id).Return(nil)
	orderRepo.On("ListAll", ctx).Return([]model.Order{}, nil)

	require.NoError(t, svc.Delete(ctx, id))
	orderRepo.AssertExpectations(t)
}

func TestOrderService_DeleteMany_BestEffort(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	good1, bad, good2 := uuid.New(), uuid.New(), uuid.New()
	orderRepo.On("Delete", ctx, good1).Return(nil)
	orderRepo.On("Delete", ctx, bad).Return(errors.New("connection reset"))
	orderRepo.On("Delete", ctx, good2).Return(nil)
	orderRepo.On("ListAll", ctx).Return([]model.Order{}, nil)

	failed := svc.DeleteMany(ctx, []uuid.UUID{good1, bad, good2})

	// The failure in the middle does not stop the remaining deletions.
	require.Len(t, failed, 1)
	assert.Equal(t, bad, failed[0])
	orderRepo.AssertCalled(t, "Delete", ctx, good2)
}

func TestOrderService_ExportCSV_Selection(t *testing.T) {
	ctx := context.Background()

	orderRepo := new(MockOrderRepository)
	catalogRepo := new(MockCatalogRepository)
	svc := newTestService(orderRepo, catalogRepo)

	wanted := model.Order{
		ID:          uuid.New(),
		CreatedAt:   time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		OrderNumber: "expo20240115-001",
		Items: []model.OrderItem{
			{Code: "035604", Name: "月化粧(4個入)", Quantity: 2},
			{Code: "036806", Name: "月化粧サブレ(6枚入)", Quantity: 1},
		},
	}
	other := model.Order{
		ID:          uuid.New(),
		CreatedAt:   time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC),
		OrderNumber: "expo20240115-002",
		Items:       []model.OrderItem{{Code: "035610", Name: "月化粧(10個入)", Quantity: 1}},
	}
	orderRepo.On("ListAll", ctx).Return([]model.Order{wanted, other}, nil)

	var buf bytes.Buffer
	err := svc.ExportCSV(ctx, &buf, []uuid.UUID{wanted.ID})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	// Header plus one row per item of the selected order only.
	require.Len(t, records, 3)
	assert.Equal(t, "expo20240115-001", records[1][0])
	assert.Equal(t, "expo20240115-001", records[2][0])
}
