package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"school-payment-service/db"
	"school-payment-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("payments"),
		postgres.WithUsername("payments"),
		postgres.WithPassword("payments"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func strPtr(s string) *string { return &s }

func TestOrderRepositoryIntegration(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()
	orders := NewOrderRepository(conn)
	views := NewTransactionRepository(conn)
	logs := NewWebhookLogRepository(conn)

	t.Run("native event reconciles an existing order", func(t *testing.T) {
		order := &models.Order{SchoolID: "school-a", GatewayName: "Edviron", Amount: 1000, CustomOrderID: strPtr("ORD123")}
		require.NoError(t, orders.Create(ctx, order))

		found, err := orders.FindByCustomOrderID(ctx, "ORD123")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, models.StatusPending, found.Status)

		now := time.Now().UTC().Truncate(time.Second)
		st := &models.OrderStatus{OrderAmount: 1000, TransactionAmount: 1000, PaymentMode: "upi", Status: "SUCCESS", PaymentTime: &now}
		require.NoError(t, orders.ApplyEvent(ctx, found.ID, st, models.StatusSuccess, "X"))
		// replaying the identical event leaves the same state
		require.NoError(t, orders.ApplyEvent(ctx, found.ID, &models.OrderStatus{OrderAmount: 1000, TransactionAmount: 1000, PaymentMode: "upi", Status: "SUCCESS", PaymentTime: &now}, models.StatusSuccess, "X"))

		after, err := orders.FindByCustomOrderID(ctx, "ORD123")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuccess, after.Status)
		assert.Equal(t, "X", after.GatewayName)

		var count int
		require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_status WHERE collect_id = $1`, found.ID).Scan(&count))
		assert.Equal(t, 1, count)

		got, err := orders.GetStatus(ctx, found.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1000.0, got.TransactionAmount)
		assert.True(t, now.Equal(*got.PaymentTime))
	})

	t.Run("custom order id is unique", func(t *testing.T) {
		err := orders.Create(ctx, &models.Order{SchoolID: "school-a", CustomOrderID: strPtr("ORD123")})
		assert.ErrorIs(t, err, ErrDuplicateOrder)
	})

	t.Run("unknown custom order id", func(t *testing.T) {
		found, err := orders.FindByCustomOrderID(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, found)

		ok, err := orders.UpdateStatus(ctx, "does-not-exist", models.StatusFailed)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent events leave one consistent status record", func(t *testing.T) {
		order := &models.Order{SchoolID: "school-a", Amount: 50, CustomOrderID: strPtr("RACE-1")}
		require.NoError(t, orders.Create(ctx, order))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				raw, status := "SUCCESS", models.StatusSuccess
				if i%2 == 1 {
					raw, status = "FAILED", models.StatusFailed
				}
				assert.NoError(t, orders.ApplyEvent(ctx, order.ID, &models.OrderStatus{Status: raw}, status, "X"))
			}(i)
		}
		wg.Wait()

		after, err := orders.FindByCustomOrderID(ctx, "RACE-1")
		require.NoError(t, err)
		st, err := orders.GetStatus(ctx, order.ID)
		require.NoError(t, err)
		if st.Status == "SUCCESS" {
			assert.Equal(t, models.StatusSuccess, after.Status)
		} else {
			assert.Equal(t, models.StatusFailed, after.Status)
		}
	})

	t.Run("transaction view paginates the left join", func(t *testing.T) {
		for i := 0; i < 25; i++ {
			o := &models.Order{SchoolID: "school-page", Amount: float64(i + 1), CustomOrderID: strPtr(fmt.Sprintf("PAGE-%02d", i))}
			require.NoError(t, orders.Create(ctx, o))
			if i%2 == 0 {
				require.NoError(t, orders.ApplyEvent(ctx, o.ID, &models.OrderStatus{TransactionAmount: float64(i + 1)}, models.StatusSuccess, "X"))
			}
		}

		page, total, err := views.List(ctx, models.TransactionFilter{SchoolID: "school-page", Sort: "order_amount", Order: "asc", Page: 2, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 25, total)
		require.Len(t, page, 10)
		for i, row := range page {
			assert.Equal(t, float64(11+i), row.OrderAmount)
		}
		// order_amount 12 has index 11, odd, so no status record
		assert.Nil(t, page[1].TransactionAmount)
		assert.Nil(t, page[1].PaymentMode)
		require.NotNil(t, page[0].TransactionAmount)
		assert.Equal(t, 11.0, *page[0].TransactionAmount)

		succeeded, total, err := views.List(ctx, models.TransactionFilter{SchoolID: "school-page", Status: "success", Limit: 100})
		require.NoError(t, err)
		assert.Equal(t, 13, total)
		assert.Len(t, succeeded, 13)
	})

	t.Run("webhook logs are listed newest first", func(t *testing.T) {
		base := time.Now().UTC()
		for i := 0; i < 3; i++ {
			payload, _ := json.Marshal(map[string]int{"n": i})
			_, err := logs.Insert(ctx, payload, base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
		}

		entries, total, err := logs.List(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, entries, 2)
		assert.JSONEq(t, `{"n":2}`, string(entries[0].Payload))

		got, err := logs.Get(ctx, entries[1].ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.JSONEq(t, `{"n":1}`, string(got.Payload))

		missing, err := logs.Get(ctx, "not-a-uuid")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("webhook log payloads keep escaped NUL characters", func(t *testing.T) {
		payload := json.RawMessage(`{"order_id":"ORD-NUL","note":"a\u0000b"}`)
		entry, err := logs.Insert(ctx, payload, time.Now().UTC())
		require.NoError(t, err)

		got, err := logs.Get(ctx, entry.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, string(payload), string(got.Payload))
	})
}
