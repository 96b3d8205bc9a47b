package inventory

import (
	"bufio"
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lghartmann/formhttpd/internal/request"
	"github.com/lghartmann/formhttpd/internal/response"
	"github.com/lghartmann/formhttpd/internal/router"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	// every pooled connection would get its own in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newRouter(t *testing.T) (*router.Router, *Store) {
	t.Helper()
	s := newStore(t)
	rt := router.New()
	NewHandlers(s, zerolog.Nop()).Register(rt)
	return rt, s
}

func do(t *testing.T, rt *router.Router, method, target, body string) response.Response {
	t.Helper()
	raw := method + " " + target + " HTTP/1.1\r\nHost: localhost\r\n"
	if body != "" {
		raw += "Content-Length: " + strconv.Itoa(len(body)) + "\r\n"
	}
	raw += "\r\n" + body
	req, err := request.RequestFromReader(bufio.NewReader(strings.NewReader(raw)), request.Limits{})
	require.NoError(t, err)
	return rt.Dispatch(req)
}

func TestStoreCRUD(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	drill := Tech{InventoryNumber: 5, Name: "Drill", Model: "X1", AcquisitionDate: "2024-01-01", Price: 99}
	require.NoError(t, s.Insert(ctx, &drill))
	assert.NotZero(t, drill.ID)

	got, err := s.Get(ctx, drill.ID)
	require.NoError(t, err)
	assert.Equal(t, drill, got)

	drill.Price = 120
	require.NoError(t, s.Update(ctx, drill))
	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 120, all[0].Price)

	require.NoError(t, s.Delete(ctx, drill.ID))
	_, err = s.Get(ctx, drill.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, drill.ID), ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, drill), ErrNotFound)
}

func TestAddTech(t *testing.T) {
	rt, s := newRouter(t)

	resp := do(t, rt, "GET", "/add-tech", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), `name="inventory_number"`)

	resp = do(t, rt, "POST", "/add-tech", "inventory_number=5&name=Drill&model=X1&acquisition_date=2024-01-01&price=99")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), "Added tech")

	all, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Drill", all[0].Name)
	assert.Equal(t, 99, all[0].Price)

	resp = do(t, rt, "POST", "/add-tech", "inventory_number=5&name=Again&model=X1&acquisition_date=2024-01-01&price=1")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), "Failed to add tech")

	resp = do(t, rt, "POST", "/add-tech", "inventory_number=6&name=Saw&price=cheap")
	assert.Equal(t, response.StatusInternalServerError, resp.Status)
	assert.Contains(t, string(resp.Body), "price")

	resp = do(t, rt, "POST", "/add-tech", "")
	assert.Equal(t, response.StatusInternalServerError, resp.Status)
	assert.Contains(t, string(resp.Body), "no form data supplied")

	resp = do(t, rt, "PUT", "/add-tech", "")
	assert.Equal(t, response.StatusMethodNotAllowed, resp.Status)
}

func TestTableAndWelcome(t *testing.T) {
	rt, s := newRouter(t)
	require.NoError(t, s.Insert(context.Background(), &Tech{InventoryNumber: 1, Name: "<Hammer>", Model: "H", AcquisitionDate: "2023-05-05", Price: 10}))

	resp := do(t, rt, "GET", "/tech", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), "&lt;Hammer&gt;")
	assert.Contains(t, string(resp.Body), `action="/delete-tech/1"`)

	assert.Equal(t, response.StatusMethodNotAllowed, do(t, rt, "POST", "/tech", "a=1").Status)

	resp = do(t, rt, "GET", "/?from=nav", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), "Welcome to the Home Page")
}

func TestEditTech(t *testing.T) {
	rt, s := newRouter(t)
	drill := Tech{InventoryNumber: 5, Name: "Drill", Model: "X1", AcquisitionDate: "2024-01-01", Price: 99}
	require.NoError(t, s.Insert(context.Background(), &drill))
	target := "/edit-tech/" + strconv.Itoa(drill.ID)

	resp := do(t, rt, "GET", target+"?foo=1", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), `value="Drill"`)

	resp = do(t, rt, "POST", target, "inventory_number=5&name=Drill+Pro&model=X2&acquisition_date=2024-02-02&price=150")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), "Updated tech")

	got, err := s.Get(context.Background(), drill.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drill Pro", got.Name)
	assert.Equal(t, 150, got.Price)

	resp = do(t, rt, "GET", "/edit-tech/abc", "")
	assert.Equal(t, response.StatusInternalServerError, resp.Status)
	assert.Contains(t, string(resp.Body), "get arguments from url")

	resp = do(t, rt, "GET", "/edit-tech/999", "")
	assert.Equal(t, response.StatusInternalServerError, resp.Status)
	assert.Contains(t, string(resp.Body), "tech not found")

	assert.Equal(t, response.StatusMethodNotAllowed, do(t, rt, "PUT", target, "").Status)
}

func TestDeleteTech(t *testing.T) {
	rt, s := newRouter(t)
	drill := Tech{InventoryNumber: 5, Name: "Drill", Model: "X1", AcquisitionDate: "2024-01-01", Price: 99}
	require.NoError(t, s.Insert(context.Background(), &drill))
	target := "/delete-tech/" + strconv.Itoa(drill.ID)

	assert.Equal(t, response.StatusMethodNotAllowed, do(t, rt, "GET", target, "").Status)

	resp := do(t, rt, "POST", target, "_method=DELETE")
	assert.Equal(t, response.StatusFound, resp.Status)
	assert.Equal(t, "/tech", resp.Location)
	assert.Empty(t, resp.Body)

	resp = do(t, rt, "POST", target, "")
	assert.Equal(t, response.StatusInternalServerError, resp.Status)

	resp = do(t, rt, "POST", "/delete-tech/x", "")
	assert.Equal(t, response.StatusInternalServerError, resp.Status)
	assert.Contains(t, string(resp.Body), "get arguments from url")
}

func TestUnits(t *testing.T) {
	rt, s := newRouter(t)
	ctx := context.Background()

	resp := do(t, rt, "GET", "/add-unit", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), `action="/add-unit"`)

	resp = do(t, rt, "POST", "/add-unit", "name=Workshop")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), "Added unit")

	resp = do(t, rt, "POST", "/add-unit", "name=Workshop")
	assert.Contains(t, string(resp.Body), "Failed to add unit")

	resp = do(t, rt, "POST", "/add-unit", "")
	assert.Equal(t, response.StatusInternalServerError, resp.Status)

	units, err := s.ListUnits(ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)

	resp = do(t, rt, "GET", "/unit", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), `href="/view-unit-tech/`+strconv.Itoa(units[0].ID)+`"`)
	assert.Equal(t, response.StatusMethodNotAllowed, do(t, rt, "POST", "/unit", "a=1").Status)

	resp = do(t, rt, "GET", "/add-tech", "")
	assert.Contains(t, string(resp.Body), ">Workshop</option>")
}

func TestViewUnitTech(t *testing.T) {
	rt, s := newRouter(t)
	ctx := context.Background()

	shop := Unit{Name: "Workshop"}
	require.NoError(t, s.InsertUnit(ctx, &shop))
	empty := Unit{Name: "Office"}
	require.NoError(t, s.InsertUnit(ctx, &empty))

	resp := do(t, rt, "POST", "/add-tech", "inventory_number=5&name=Drill&model=X1&acquisition_date=2024-01-01&price=99&unit_id="+strconv.Itoa(shop.ID))
	assert.Contains(t, string(resp.Body), "Added tech")
	require.NoError(t, s.Insert(ctx, &Tech{InventoryNumber: 6, Name: "Saw", Model: "S", AcquisitionDate: "2024-01-01", Price: 5}))

	assigned, err := s.ListByUnit(ctx, shop.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, shop.ID, assigned[0].UnitID)

	target := "/view-unit-tech/" + strconv.Itoa(shop.ID)
	resp = do(t, rt, "GET", target+"?from=unit", "")
	assert.Equal(t, response.StatusOK, resp.Status)
	body := string(resp.Body)
	assert.Contains(t, body, "Tech in Workshop")
	assert.Contains(t, body, "Drill")
	assert.NotContains(t, body, "Saw")
	assert.NotContains(t, body, "/delete-tech/")

	resp = do(t, rt, "GET", "/view-unit-tech/"+strconv.Itoa(empty.ID), "")
	assert.Contains(t, string(resp.Body), "No tech assigned")

	assert.Equal(t, response.StatusMethodNotAllowed, do(t, rt, "POST", target, "a=1").Status)

	resp = do(t, rt, "GET", "/view-unit-tech/999", "")
	assert.Equal(t, response.StatusInternalServerError, resp.Status)
	assert.Contains(t, string(resp.Body), "unit not found")

	resp = do(t, rt, "GET", "/view-unit-tech/x", "")
	assert.Equal(t, response.StatusInternalServerError, resp.Status)
	assert.Contains(t, string(resp.Body), "get arguments from url")

	resp = do(t, rt, "POST", "/add-tech", "inventory_number=7&name=Hammer&price=1&unit_id=first")
	assert.Equal(t, response.StatusInternalServerError, resp.Status)
	assert.Contains(t, string(resp.Body), "unit_id")
}

func TestMigrateAddsUnitColumn(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	_, err = db.ExecContext(ctx, `CREATE TABLE tech (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	inventory_number INTEGER NOT NULL UNIQUE,
	name             TEXT    NOT NULL,
	model            TEXT    NOT NULL,
	acquisition_date TEXT    NOT NULL,
	price            INTEGER NOT NULL
)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO tech (inventory_number, name, model, acquisition_date, price) VALUES (1, 'Old', 'O', '2020-01-01', 3)`)
	require.NoError(t, err)

	s := NewStore(db)
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Zero(t, all[0].UnitID)
}
