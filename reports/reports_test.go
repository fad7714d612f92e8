package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/Krish-Depani/order-session-api/database/dbtest"
	"github.com/Krish-Depani/order-session-api/models"
	"github.com/Krish-Depani/order-session-api/reports"
	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	engine *reports.Engine
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	return &fixture{
		db:     db,
		engine: reports.NewEngine(db),
		clock:  time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) user(t *testing.T, name string, role models.Role) models.User {
	t.Helper()
	u := models.User{Name: name, Email: name + "@example.com", Mobile: "5550100", PasswordHash: "x", Role: role, IsActive: true}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) product(t *testing.T, name, color string, price float64) models.Product {
	t.Helper()
	p := models.Product{Name: name, Color: color, Price: price, IsActive: true}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) order(t *testing.T, userID, productID uuid.UUID) models.Order {
	t.Helper()
	f.clock = f.clock.Add(time.Minute)
	o := models.Order{UserID: userID, ProductID: productID, CreatedAt: f.clock}
	require.NoError(t, f.db.Create(&o).Error)
	return o
}

func (f *fixture) item(t *testing.T, orderID, productID uuid.UUID, qty int) models.OrderItem {
	t.Helper()
	i := models.OrderItem{OrderID: orderID, ProductID: productID, Quantity: qty}
	require.NoError(t, f.db.Create(&i).Error)
	return i
}

func viewer(u models.User) reports.Viewer {
	return reports.Viewer{UserID: u.ID, Role: u.Role}
}

func TestScopeFor(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	tests := []struct {
		name      string
		role      models.Role
		requested string
		want      *uuid.UUID
		wantErr   error
	}{
		{"user sees self", models.RoleUser, "", &self, nil},
		{"user cannot widen scope", models.RoleUser, other.String(), &self, nil},
		{"user with malformed id still sees self", models.RoleUser, "nope", &self, nil},
		{"manager sees self", models.RoleManager, other.String(), &self, nil},
		{"admin sees all", models.RoleAdmin, "", nil, nil},
		{"admin filters by user", models.RoleAdmin, other.String(), &other, nil},
		{"admin with malformed id", models.RoleAdmin, "not-a-uuid", nil, utils.ErrInvalidUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := reports.ScopeFor(reports.Viewer{UserID: self, Role: tt.role}, tt.requested)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, scope.UserID)
		})
	}
}

func TestListOrders_RoleScoping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	admin := f.user(t, "admin", models.RoleAdmin)
	alice := f.user(t, "alice", models.RoleUser)
	bob := f.user(t, "bob", models.RoleUser)
	pen := f.product(t, "Pen", "blue", 2.5)

	aliceOrders := map[uuid.UUID]bool{}
	for i := 0; i < 3; i++ {
		aliceOrders[f.order(t, alice.ID, pen.ID).ID] = true
	}
	f.order(t, bob.ID, pen.ID)
	f.order(t, bob.ID, pen.ID)

	window := reports.Window{Offset: 0, Limit: 50}

	scope, err := reports.ScopeFor(viewer(alice), bob.ID.String())
	require.NoError(t, err)
	page, err := f.engine.ListOrders(ctx, scope, reports.OrderFilter{}, window)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalRecords)
	for _, o := range page.Orders {
		assert.True(t, aliceOrders[o.ID])
		assert.Equal(t, alice.ID, o.User.ID)
		assert.Equal(t, "Pen", o.Product.Name)
		assert.Equal(t, 2.5, o.Product.Price)
	}

	scope, err = reports.ScopeFor(viewer(admin), "")
	require.NoError(t, err)
	page, err = f.engine.ListOrders(ctx, scope, reports.OrderFilter{}, window)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalRecords)
	assert.Len(t, page.Orders, 5)

	scope, err = reports.ScopeFor(viewer(admin), bob.ID.String())
	require.NoError(t, err)
	page, err = f.engine.ListOrders(ctx, scope, reports.OrderFilter{}, window)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalRecords)
	for _, o := range page.Orders {
		assert.Equal(t, bob.ID, o.User.ID)
	}
}

func TestListOrders_StrictJoinAndFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := f.user(t, "alice", models.RoleUser)
	pen := f.product(t, "Pen", "blue", 2.5)
	cup := f.product(t, "Cup", "red", 8)

	f.order(t, alice.ID, pen.ID)
	f.order(t, alice.ID, cup.ID)
	f.order(t, alice.ID, uuid.New())

	page, err := f.engine.ListOrders(ctx, reports.Self(viewer(alice)), reports.OrderFilter{}, reports.Window{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalRecords)

	page, err = f.engine.ListOrders(ctx, reports.Self(viewer(alice)), reports.OrderFilter{ProductID: &cup.ID}, reports.Window{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "Cup", page.Orders[0].Product.Name)
}

func TestListOrders_Pagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := f.user(t, "alice", models.RoleUser)
	pen := f.product(t, "Pen", "blue", 1)
	var created []uuid.UUID
	for i := 0; i < 5; i++ {
		created = append(created, f.order(t, alice.ID, pen.ID).ID)
	}

	seen := map[uuid.UUID]bool{}
	for pageNo, wantLen := range []int{2, 2, 1, 0} {
		page, err := f.engine.ListOrders(ctx, reports.Self(viewer(alice)), reports.OrderFilter{}, reports.Window{Offset: pageNo * 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.TotalRecords)
		assert.Len(t, page.Orders, wantLen)
		for _, o := range page.Orders {
			assert.False(t, seen[o.ID], "order returned on two pages")
			seen[o.ID] = true
		}
	}
	assert.Len(t, seen, 5)

	first, err := f.engine.ListOrders(ctx, reports.Self(viewer(alice)), reports.OrderFilter{}, reports.Window{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, created[4], first.Orders[0].ID, "newest order first")
}

func TestListOrders_Empty(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", models.RoleUser)

	page, err := f.engine.ListOrders(context.Background(), reports.Self(viewer(alice)), reports.OrderFilter{}, reports.Window{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, page.TotalRecords)
	assert.Empty(t, page.Orders)
}

func TestOrderSummary_Totals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := f.user(t, "alice", models.RoleUser)
	ten := f.product(t, "Lamp", "white", 10)
	five := f.product(t, "Bulb", "white", 5)

	o := f.order(t, alice.ID, ten.ID)
	f.item(t, o.ID, ten.ID, 2)
	f.item(t, o.ID, five.ID, 1)

	page, err := f.engine.OrderSummary(ctx, reports.Self(viewer(alice)), reports.Window{Limit: 10})
	require.NoError(t, err)
	require.NotNil(t, page.Summary)
	assert.Equal(t, int64(1), page.Summary.TotalOrders)
	assert.Equal(t, int64(3), page.Summary.TotalQuantitySold)
	assert.InDelta(t, 25.0, page.Summary.TotalRevenue, 1e-9)
	assert.Equal(t, int64(2), page.TotalRecords)
	assert.Len(t, page.Lines, 2)
}

func TestOrderSummary_TolerantJoins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	admin := f.user(t, "admin", models.RoleAdmin)
	alice := f.user(t, "alice", models.RoleUser)
	lamp := f.product(t, "Lamp", "white", 10)

	withItems := f.order(t, alice.ID, lamp.ID)
	f.item(t, withItems.ID, lamp.ID, 2)
	f.item(t, withItems.ID, uuid.New(), 4)
	empty := f.order(t, alice.ID, lamp.ID)

	scope, err := reports.ScopeFor(viewer(admin), "")
	require.NoError(t, err)
	page, err := f.engine.OrderSummary(ctx, scope, reports.Window{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(2), page.Summary.TotalOrders)
	assert.Equal(t, int64(6), page.Summary.TotalQuantitySold)
	assert.InDelta(t, 20.0, page.Summary.TotalRevenue, 1e-9)
	assert.Equal(t, int64(3), page.TotalRecords)
	require.Len(t, page.Lines, 3)

	// Newest order first: the order without items comes back with a nil item.
	assert.Equal(t, empty.ID, page.Lines[0].OrderID)
	assert.Nil(t, page.Lines[0].Item)
	assert.Nil(t, page.Lines[0].Product)
	require.NotNil(t, page.Lines[0].User)
	assert.Equal(t, "alice@example.com", page.Lines[0].User.Email)

	var orphans int
	for _, line := range page.Lines[1:] {
		require.NotNil(t, line.Item)
		if line.Product == nil {
			orphans++
			assert.Equal(t, 4, line.Item.Quantity)
		}
	}
	assert.Equal(t, 1, orphans)
}

func TestOrderSummary_WindowDoesNotChangeTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := f.user(t, "alice", models.RoleUser)
	lamp := f.product(t, "Lamp", "white", 3)
	for i := 0; i < 4; i++ {
		o := f.order(t, alice.ID, lamp.ID)
		f.item(t, o.ID, lamp.ID, i+1)
	}

	for _, w := range []reports.Window{{Offset: 0, Limit: 1}, {Offset: 2, Limit: 2}, {Offset: 10, Limit: 5}} {
		page, err := f.engine.OrderSummary(ctx, reports.Self(viewer(alice)), w)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Lines), w.Limit)
		assert.Equal(t, int64(4), page.TotalRecords)
		assert.Equal(t, int64(10), page.Summary.TotalQuantitySold)
		assert.InDelta(t, 30.0, page.Summary.TotalRevenue, 1e-9)
	}
}

func TestOrdersByUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := f.user(t, "alice", models.RoleUser)
	bob := f.user(t, "bob", models.RoleUser)
	lamp := f.product(t, "Lamp", "white", 10)

	o := f.order(t, alice.ID, lamp.ID)
	item := f.item(t, o.ID, lamp.ID, 3)
	f.order(t, bob.ID, lamp.ID)
	f.order(t, uuid.New(), lamp.ID)

	page, err := f.engine.OrdersByUser(ctx, reports.Self(viewer(alice)), reports.Window{Limit: 10})
	require.NoError(t, err)
	assert.Nil(t, page.Summary)
	require.Len(t, page.Lines, 1)
	assert.Equal(t, item.ID, page.Lines[0].Item.ID)
	assert.Equal(t, lamp.ID, page.Lines[0].Item.ProductID)
	assert.Equal(t, "alice", page.Lines[0].User.Name)

	page, err = f.engine.OrdersByUser(ctx, reports.Scope{}, reports.Window{Limit: 10})
	require.NoError(t, err)
	// The ownerless order is dropped by the strict user join.
	assert.Equal(t, int64(2), page.TotalRecords)
}

func TestDetail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := f.user(t, "alice", models.RoleUser)
	bob := f.user(t, "bob", models.RoleUser)
	lamp := f.product(t, "Lamp", "white", 10)
	o := f.order(t, alice.ID, lamp.ID)

	detail, err := f.engine.Detail(ctx, reports.Self(viewer(alice)), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", detail.Name)
	require.NotNil(t, detail.ProductName)
	assert.Equal(t, "Lamp", *detail.ProductName)

	_, err = f.engine.Detail(ctx, reports.Self(viewer(bob)), o.ID)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.KindNotFound, appErr.Kind)

	_, err = f.engine.Detail(ctx, reports.Scope{}, uuid.New())
	require.ErrorAs(t, err, &appErr)
}

func TestProductSummary(t *testing.T) {
	f := newFixture(t)
	f.product(t, "Pen", "blue", 2)
	f.product(t, "Ink", "blue", 4)
	f.product(t, "Cup", "red", 9)
	hidden := f.product(t, "Old", "red", 100)
	require.NoError(t, f.db.Model(&hidden).Update("is_deleted", true).Error)

	rows, err := f.engine.ProductSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, reports.ColorSummary{Color: "blue", TotalProducts: 2, AvgPrice: 3}, rows[0])
	assert.Equal(t, reports.ColorSummary{Color: "red", TotalProducts: 1, AvgPrice: 9}, rows[1])
}

func TestTopSelling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := f.user(t, "alice", models.RoleUser)
	pen := f.product(t, "Pen", "blue", 2)
	cup := f.product(t, "Cup", "red", 9)

	o1 := f.order(t, alice.ID, pen.ID)
	o2 := f.order(t, alice.ID, cup.ID)
	f.item(t, o1.ID, pen.ID, 1)
	f.item(t, o2.ID, pen.ID, 2)
	f.item(t, o2.ID, cup.ID, 7)
	f.item(t, o2.ID, uuid.New(), 50)

	page, err := f.engine.TopSelling(ctx, reports.Window{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalRecords)
	require.Len(t, page.Products, 2)
	assert.Equal(t, cup.ID, page.Products[0].ProductID)
	assert.Equal(t, int64(7), page.Products[0].TotalQty)
	assert.Equal(t, pen.ID, page.Products[1].ProductID)
	assert.Equal(t, int64(3), page.Products[1].TotalQty)
	assert.Equal(t, int64(2), page.Products[1].OrderCount)

	page, err = f.engine.TopSelling(ctx, reports.Window{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Pen", page.Products[0].Name)
}
