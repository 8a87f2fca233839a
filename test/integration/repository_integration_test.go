package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"expo-orders/internal/model"
	"expo-orders/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder(number string) *model.Order {
	return &model.Order{
		ID:                 uuid.New(),
		CreatedAt:          time.Now().UTC().Truncate(time.Microsecond),
		OrderNumber:        number,
		Name:               "山田太郎",
		PostalCode:         "590-0521",
		Address:            "大阪府泉南市樽井1-1-1",
		Phone:              "072-000-0000",
		SameAsReceiver:     true,
		ReceiverName:       "山田太郎",
		ReceiverPostalCode: "590-0521",
		ReceiverAddress:    "大阪府泉南市樽井1-1-1",
		ReceiverPhone:      "072-000-0000",
		DeliveryDate:       "2024-01-20",
		DeliveryTime:       model.DeliveryTimeMorning,
		Items: []model.OrderItem{
			{Code: "035604", Name: "月化粧(4個入)", Quantity: 2},
			{Code: "036806", Name: "月化粧サブレ(6枚入)", Quantity: 1},
		},
	}
}

func TestCatalogRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	repo := repository.NewCatalogRepository(testDB.Pool, zerolog.Nop())
	ctx := context.Background()

	t.Run("GetAll returns seeded catalog in display order", func(t *testing.T) {
		products, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, products, 12)
		assert.Equal(t, "035604", products[0].Code)
		assert.Equal(t, "月化粧(4個入)", products[0].Name)
		assert.Equal(t, "009640", products[11].Code)
	})

	t.Run("GetByCodes resolves names", func(t *testing.T) {
		products, err := repo.GetByCodes(ctx, []string{"035604", "036806"})
		require.NoError(t, err)
		require.Len(t, products, 2)
	})

	t.Run("ValidateCodesExist accepts known codes", func(t *testing.T) {
		err := repo.ValidateCodesExist(ctx, []string{"035604", "009056"})
		assert.NoError(t, err)
	})

	t.Run("ValidateCodesExist rejects unknown codes", func(t *testing.T) {
		err := repo.ValidateCodesExist(ctx, []string{"035604", "999999"})
		assert.ErrorIs(t, err, model.ErrUnknownProduct)
	})
}

func TestOrderRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	repo := repository.NewOrderRepository(testDB.Pool, zerolog.Nop())
	ctx := context.Background()

	t.Run("Save and ListAll round-trip", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		order := sampleOrder("expo20240115-001")
		require.NoError(t, repo.Save(ctx, order))

		orders, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, orders, 1)

		got := orders[0]
		assert.Equal(t, order.ID, got.ID)
		assert.Equal(t, order.OrderNumber, got.OrderNumber)
		assert.Equal(t, order.Name, got.Name)
		assert.Equal(t, order.ReceiverName, got.ReceiverName)
		assert.Equal(t, order.DeliveryTime, got.DeliveryTime)
		require.Len(t, got.Items, 2)
		assert.Equal(t, order.Items[0], got.Items[0])
		assert.Equal(t, order.Items[1], got.Items[1])
	})

	t.Run("Save rejects duplicate id", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		order := sampleOrder("expo20240115-001")
		require.NoError(t, repo.Save(ctx, order))

		err := repo.Save(ctx, order)
		require.Error(t, err)

		// The duplicate never coalesced with the stored record.
		orders, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})

	t.Run("Failed save leaves no partial order", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		order := sampleOrder("expo20240115-001")
		order.Items[1].Quantity = -1 // violates the quantity check constraint

		require.Error(t, repo.Save(ctx, order))

		orders, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		order := sampleOrder("expo20240115-001")
		require.NoError(t, repo.Save(ctx, order))

		require.NoError(t, repo.Delete(ctx, order.ID))
		require.NoError(t, repo.Delete(ctx, order.ID))
		require.NoError(t, repo.Delete(ctx, uuid.New()))

		orders, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("NextSerial counts up per day", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		for want := 1; want <= 5; want++ {
			serial, err := repo.NextSerial(ctx, "20240115")
			require.NoError(t, err)
			assert.Equal(t, want, serial)
		}

		// A new day starts at 1.
		serial, err := repo.NextSerial(ctx, "20240116")
		require.NoError(t, err)
		assert.Equal(t, 1, serial)
	})

	t.Run("NextSerial is atomic under concurrency", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		const n = 20
		serials := make(chan int, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				serial, err := repo.NextSerial(ctx, "20240117")
				assert.NoError(t, err)
				serials <- serial
			}()
		}
		wg.Wait()
		close(serials)

		seen := make(map[int]bool)
		for s := range serials {
			assert.False(t, seen[s], "serial %d handed out twice", s)
			seen[s] = true
		}
		assert.Len(t, seen, n)
	})

	t.Run("NextSerial recovers from corrupt counter", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		_, err := testDB.Pool.Exec(ctx,
			"INSERT INTO order_counters (day_key, count) VALUES ($1, $2)", "20240118", -42)
		require.NoError(t, err)

		serial, err := repo.NextSerial(ctx, "20240118")
		require.NoError(t, err)
		assert.Equal(t, 1, serial)

		// Numbering continues normally afterwards.
		serial, err = repo.NextSerial(ctx, "20240118")
		require.NoError(t, err)
		assert.Equal(t, 2, serial)
	})
}
