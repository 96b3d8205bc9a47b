package inventory

import (
	"bytes"
	"html/template"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
  <head>
    <title>{{.Title}}</title>
  </head>
  <body>
    <header>
      <nav>
        <a href="/">Home</a>
        <a href="/tech">Tech</a>
        <a href="/unit">Units</a>
      </nav>
    </header>
    <main>
      {{if .Message}}<div class="{{.MessageClass}}">{{.Message}}</div>{{end}}
      {{template "content" .}}
    </main>
  </body>
</html>
{{end}}`

const welcomePage = `{{define "content"}}
      <h2>Welcome to the Home Page</h2>
      <p>This is the main content of the home page.</p>
{{end}}`

const tablePage = `{{define "content"}}
      <h1>Tech list</h1>
      <a href="/add-tech"><button type="button">Add Tech</button></a>
      <table border="1">
        <thead>
          <tr><th>ID</th><th>Inventory Number</th><th>Name</th><th>Model</th><th>Acquisition Date</th><th>Price</th><th>Actions</th></tr>
        </thead>
        <tbody>
        {{range .Tech}}
          <tr>
            <td>{{.ID}}</td><td>{{.InventoryNumber}}</td><td>{{.Name}}</td><td>{{.Model}}</td><td>{{.AcquisitionDate}}</td><td>{{.Price}}</td>
            <td>
              <form action="/delete-tech/{{.ID}}" method="POST"><button type="submit">Delete</button></form>
              <form action="/edit-tech/{{.ID}}" method="GET"><button type="submit">Edit</button></form>
            </td>
          </tr>
        {{end}}
        </tbody>
      </table>
{{end}}`

const formPage = `{{define "content"}}
      <h1>{{.Title}}</h1>
      <form action="{{.Action}}" method="POST">
        <label>Inventory number <input type="number" name="inventory_number" value="{{with .Item}}{{.InventoryNumber}}{{end}}"></label>
        <label>Name <input type="text" name="name" value="{{with .Item}}{{.Name}}{{end}}"></label>
        <label>Model <input type="text" name="model" value="{{with .Item}}{{.Model}}{{end}}"></label>
        <label>Acquisition date <input type="date" name="acquisition_date" value="{{with .Item}}{{.AcquisitionDate}}{{end}}"></label>
        <label>Price <input type="number" name="price" value="{{with .Item}}{{.Price}}{{end}}"></label>
        <label>Unit <select name="unit_id">
          <option value="">None</option>
          {{$unit := 0}}{{with .Item}}{{$unit = .UnitID}}{{end}}
          {{range .Units}}<option value="{{.ID}}"{{if eq .ID $unit}} selected{{end}}>{{.Name}}</option>{{end}}
        </select></label>
        <button type="submit">Save</button>
      </form>
{{end}}`

const unitTablePage = `{{define "content"}}
      <h1>Unit list</h1>
      <a href="/add-unit"><button type="button">Add Unit</button></a>
      <table border="1">
        <thead>
          <tr><th>ID</th><th>Name</th><th>Tech</th></tr>
        </thead>
        <tbody>
        {{range .Units}}
          <tr>
            <td>{{.ID}}</td><td>{{.Name}}</td>
            <td><a href="/view-unit-tech/{{.ID}}">View tech</a></td>
          </tr>
        {{end}}
        </tbody>
      </table>
{{end}}`

const unitFormPage = `{{define "content"}}
      <h1>{{.Title}}</h1>
      <form action="/add-unit" method="POST">
        <label>Name <input type="text" name="name"></label>
        <button type="submit">Save</button>
      </form>
{{end}}`

// unitTechPage lists a unit's tech without edit or delete actions.
const unitTechPage = `{{define "content"}}
      <h1>Tech in {{.Unit.Name}}</h1>
      <table border="1">
        <thead>
          <tr><th>ID</th><th>Inventory Number</th><th>Name</th><th>Model</th><th>Acquisition Date</th><th>Price</th></tr>
        </thead>
        <tbody>
        {{range .Tech}}
          <tr>
            <td>{{.ID}}</td><td>{{.InventoryNumber}}</td><td>{{.Name}}</td><td>{{.Model}}</td><td>{{.AcquisitionDate}}</td><td>{{.Price}}</td>
          </tr>
        {{else}}
          <tr><td colspan="6">No tech assigned</td></tr>
        {{end}}
        </tbody>
      </table>
{{end}}`

func mustPage(content string) *template.Template {
	return template.Must(template.Must(template.New("page").Parse(layout)).Parse(content))
}

var (
	welcomeTmpl = mustPage(welcomePage)
	tableTmpl   = mustPage(tablePage)
	formTmpl    = mustPage(formPage)

	unitTableTmpl = mustPage(unitTablePage)
	unitFormTmpl  = mustPage(unitFormPage)
	unitTechTmpl  = mustPage(unitTechPage)
)

type messageKind int

const (
	noMessage messageKind = iota
	notify
	failure
)

type page struct {
	Title   string
	Message string
	kind    messageKind
	Tech    []Tech
	Item    *Tech
	Units   []Unit
	Unit    *Unit
	Action  string
}

func (p page) MessageClass() string {
	if p.kind == failure {
		return "alert alert-danger mt-3"
	}
	return "notify-message mt-3"
}

func render(t *template.Template, p page) ([]byte, error) {
	var b bytes.Buffer
	if err := t.ExecuteTemplate(&b, "layout", p); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
