// Package inventory is the tech catalog served by cmd/httpserver. Handlers
// share one *sql.DB pool and answer through the router.
package inventory

import (
	"context"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/lghartmann/formhttpd/internal/form"
	"github.com/lghartmann/formhttpd/internal/response"
	"github.com/lghartmann/formhttpd/internal/router"
)

const queryTimeout = 3 * time.Second

type Handlers struct {
	store *Store
	log   zerolog.Logger
}

func NewHandlers(store *Store, log zerolog.Logger) *Handlers {
	return &Handlers{store: store, log: log}
}

// Register adds the catalog routes to rt.
func (h *Handlers) Register(rt *router.Router) {
	rt.Exact("/", h.welcome)
	rt.Exact("/tech", h.table)
	rt.Exact("/add-tech", h.add)
	rt.Prefix("/edit-tech/", router.WithID(h.edit))
	rt.Prefix("/delete-tech/", h.delete)
	rt.Exact("/unit", h.units, "GET")
	rt.Exact("/add-unit", h.addUnit, "GET", "POST")
	rt.Prefix("/view-unit-tech/", router.WithID(h.unitTech), "GET")
}

func (h *Handlers) welcome(c *router.Call) response.Response {
	if !c.Allow("GET") {
		return response.MethodNotAllowed()
	}
	return h.page(welcomeTmpl, page{Title: "Home"})
}

func (h *Handlers) table(c *router.Call) response.Response {
	if !c.Allow("GET") {
		return response.MethodNotAllowed()
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tech, err := h.store.List(ctx)
	if err != nil {
		return response.InternalServerError(err.Error())
	}
	return h.page(tableTmpl, page{Title: "Tech", Tech: tech})
}

func (h *Handlers) add(c *router.Call) response.Response {
	if !c.Allow("GET", "POST") {
		return response.MethodNotAllowed()
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	units, err := h.store.ListUnits(ctx)
	if err != nil {
		return response.InternalServerError(err.Error())
	}
	p := page{Title: "Add tech", Action: "/add-tech", Units: units}
	if c.Method == "GET" {
		return h.page(formTmpl, p)
	}

	t, err := techFromForm(c.Form)
	if err != nil {
		return response.InternalServerError(err.Error())
	}
	if err := h.store.Insert(ctx, &t); err != nil {
		h.log.Warn().Err(err).Int("inventory_number", t.InventoryNumber).Msg("insert tech failed")
		p.Message, p.kind = "Failed to add tech", failure
	} else {
		p.Message, p.kind = "Added tech", notify
	}
	return h.page(formTmpl, p)
}

func (h *Handlers) edit(c *router.Call, id int) response.Response {
	if !c.Allow("GET", "POST") {
		return response.MethodNotAllowed()
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	t, err := h.store.Get(ctx, id)
	if err != nil {
		return response.InternalServerError(err.Error())
	}
	units, err := h.store.ListUnits(ctx)
	if err != nil {
		return response.InternalServerError(err.Error())
	}
	p := page{Title: "Edit tech", Action: "/edit-tech/" + strconv.Itoa(id), Item: &t, Units: units}
	if c.Method == "GET" {
		return h.page(formTmpl, p)
	}

	updated, err := techFromForm(c.Form)
	if err != nil {
		return response.InternalServerError(err.Error())
	}
	updated.ID = id
	if err := h.store.Update(ctx, updated); err != nil {
		return response.InternalServerError(err.Error())
	}
	p.Item = &updated
	p.Message, p.kind = "Updated tech", notify
	return h.page(formTmpl, p)
}

// delete checks the method before the id, so a GET on a bad url is a 405.
func (h *Handlers) delete(c *router.Call) response.Response {
	if !c.Allow("POST") {
		return response.MethodNotAllowed()
	}
	id, ok := c.IntArg()
	if !ok {
		return response.InternalServerError(router.ArgumentError)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := h.store.Delete(ctx, id); err != nil {
		return response.InternalServerError(err.Error())
	}
	return response.Found("/tech")
}

func (h *Handlers) units(c *router.Call) response.Response {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	units, err := h.store.ListUnits(ctx)
	if err != nil {
		return response.InternalServerError(err.Error())
	}
	return h.page(unitTableTmpl, page{Title: "Units", Units: units})
}

func (h *Handlers) addUnit(c *router.Call) response.Response {
	p := page{Title: "Add unit"}
	if c.Method == "GET" {
		return h.page(unitFormTmpl, p)
	}
	if c.Form == nil || c.Form.Get("name") == "" {
		return response.InternalServerError("no unit name supplied")
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	u := Unit{Name: c.Form.Get("name")}
	if err := h.store.InsertUnit(ctx, &u); err != nil {
		h.log.Warn().Err(err).Str("name", u.Name).Msg("insert unit failed")
		p.Message, p.kind = "Failed to add unit", failure
	} else {
		p.Message, p.kind = "Added unit", notify
	}
	return h.page(unitFormTmpl, p)
}

// unitTech is the read-only view of the tech assigned to one unit.
func (h *Handlers) unitTech(c *router.Call, id int) response.Response {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	u, err := h.store.GetUnit(ctx, id)
	if err != nil {
		return response.InternalServerError(err.Error())
	}
	tech, err := h.store.ListByUnit(ctx, id)
	if err != nil {
		return response.InternalServerError(err.Error())
	}
	return h.page(unitTechTmpl, page{Title: u.Name, Unit: &u, Tech: tech})
}

func (h *Handlers) page(t *template.Template, p page) response.Response {
	body, err := render(t, p)
	if err != nil {
		h.log.Error().Err(err).Str("title", p.Title).Msg("render failed")
		return response.InternalServerError(err.Error())
	}
	return response.OK(body)
}

func techFromForm(f form.Values) (Tech, error) {
	if f == nil {
		return Tech{}, fmt.Errorf("no form data supplied")
	}
	price, err := strconv.Atoi(f.Get("price"))
	if err != nil {
		return Tech{}, fmt.Errorf("price: %w", err)
	}
	inventoryNumber, err := strconv.Atoi(f.Get("inventory_number"))
	if err != nil {
		return Tech{}, fmt.Errorf("inventory_number: %w", err)
	}
	var unit int
	if raw := f.Get("unit_id"); raw != "" {
		if unit, err = strconv.Atoi(raw); err != nil {
			return Tech{}, fmt.Errorf("unit_id: %w", err)
		}
	}
	return Tech{
		InventoryNumber: inventoryNumber,
		Name:            f.Get("name"),
		Model:           f.Get("model"),
		AcquisitionDate: f.Get("acquisition_date"),
		Price:           price,
		UnitID:          unit,
	}, nil
}
