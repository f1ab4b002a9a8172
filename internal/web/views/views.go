// Package views renders editing sessions as HTML.
//
// Components are plain templ.Component values so handlers can render them
// with templ's streaming API. All user data goes through templ.EscapeString.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/pastegrid/internal/core"
	"github.com/JonMunkholm/pastegrid/internal/grid"
)

// TableGroup is one menu group on the table list page.
type TableGroup struct {
	Name   string
	Tables []core.TableInfo
}

// writer collects the first write error so components read linearly.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) printf(format string, args ...any) {
	w.raw(fmt.Sprintf(format, args...))
}

// Page wraps body in the HTML document.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		w.text(title)
		w.raw(`</title><style>` + styles + `</style></head><body><main>`)
		if w.err != nil {
			return w.err
		}
		if err := body.Render(ctx, out); err != nil {
			return err
		}
		w.raw(`</main></body></html>`)
		return w.err
	})
}

// TableList lists the editable tables with a form to open a session.
func TableList(groups []TableGroup) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<h1>Tables</h1>`)
		if len(groups) == 0 {
			w.raw(`<p class="empty">No tables registered.</p>`)
		}
		for _, g := range groups {
			w.raw(`<section><h2>`)
			w.text(g.Name)
			w.raw(`</h2><ul>`)
			for _, t := range g.Tables {
				w.raw(`<li><form method="post" action="/sessions"><input type="hidden" name="table" value="`)
				w.text(t.Key)
				w.raw(`"><span>`)
				w.text(t.Label)
				w.raw(`</span> <button name="mode" value="create">New rows</button> <button name="mode" value="edit">Edit</button></form></li>`)
			}
			w.raw(`</ul></section>`)
		}
		return w.err
	})
}

// Grid renders a session snapshot as a table. Invalid cells carry their
// message in the title attribute; dirty rows and the ghost row get classes.
func Grid(snap core.SessionSnapshot) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := &writer{w: out}

		dirty := make(map[string]bool, len(snap.DirtyRowIDs))
		for _, id := range snap.DirtyRowIDs {
			dirty[id] = true
		}

		w.raw(`<h1>`)
		w.text(snap.Table.Label)
		w.raw(` <small>`)
		w.text(string(snap.Mode))
		w.raw(`</small></h1>`)

		w.printf(`<p class="status" data-version="%d">`, snap.Version)
		switch {
		case snap.Saving:
			w.raw(`Saving…`)
		case !snap.Validation.IsValid:
			w.printf(`%d invalid cell(s)`, snap.Validation.ErrorCount())
		case snap.HasUnsavedChanges:
			w.raw(`Unsaved changes`)
		default:
			w.raw(`No changes`)
		}
		w.raw(`</p>`)

		w.raw(`<table data-session="`)
		w.text(snap.ID)
		w.raw(`"><thead><tr>`)
		for _, c := range snap.Columns {
			w.raw(`<th data-type="`)
			w.text(c.Type.String())
			w.raw(`">`)
			w.text(c.Label)
			if c.Required {
				w.raw(`<abbr title="required">*</abbr>`)
			}
			w.raw(`</th>`)
		}
		w.raw(`</tr></thead><tbody>`)

		for _, row := range snap.Rows {
			w.raw(`<tr data-row="`)
			w.text(row.ID)
			w.raw(`"`)
			if cls := rowClass(row, dirty); cls != "" {
				w.raw(` class="` + cls + `"`)
			}
			w.raw(`>`)
			errs := snap.Validation.Errors[row.ID]
			for _, c := range snap.Columns {
				w.raw(`<td data-column="`)
				w.text(c.ID)
				w.raw(`"`)
				if msg, ok := errs[c.ID]; ok {
					w.raw(` class="invalid" title="`)
					w.text(msg)
					w.raw(`"`)
				}
				if c.Editable {
					w.raw(` contenteditable="true"`)
				}
				w.raw(`>`)
				w.text(row.Cells[c.ID])
				w.raw(`</td>`)
			}
			w.raw(`</tr>`)
			if msg, ok := errs[grid.RowErrorKey]; ok {
				w.printf(`<tr class="row-error"><td colspan="%d">`, len(snap.Columns))
				w.text(msg)
				w.raw(`</td></tr>`)
			}
		}
		w.raw(`</tbody></table>`)

		w.raw(`<form method="post" action="/sessions/`)
		w.text(snap.ID)
		w.raw(`/save"><button`)
		if !snap.SaveEnabled {
			w.raw(` disabled`)
		}
		w.raw(`>Save</button></form>`)
		return w.err
	})
}

func rowClass(row grid.Row, dirty map[string]bool) string {
	var classes []string
	if row.IsGhost() {
		classes = append(classes, "ghost")
	}
	if dirty[row.ID] {
		classes = append(classes, "dirty")
	}
	return strings.Join(classes, " ")
}

// ErrorAlert renders a user-facing error.
func ErrorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<div class="error" role="alert"><p>`)
		w.text(msg.Message)
		w.raw(`</p>`)
		if msg.Action != "" {
			w.raw(`<p>`)
			w.text(msg.Action)
			w.raw(`</p>`)
		}
		w.raw(`<small>Code: `)
		w.text(msg.Code)
		w.raw(`</small></div>`)
		return w.err
	})
}

const styles = `body{font-family:system-ui,sans-serif;margin:2rem}` +
	`table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:.25rem .5rem}` +
	`tr.dirty{background:#fff8e1}tr.ghost td{color:#999}td.invalid{outline:2px solid #d32f2f}` +
	`.error{border:1px solid #d32f2f;padding:.5rem}`
