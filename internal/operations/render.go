package operations

import (
	"bytes"
	"io"

	aptemplate "github.com/appetiteclub/apt/template"
)

// renderer executes a named template into w.
type renderer interface {
	Render(w io.Writer, name string, data interface{}) error
}

type managerRenderer struct {
	mgr *aptemplate.Manager
}

func (m managerRenderer) Render(w io.Writer, name string, data interface{}) error {
	tmpl, err := m.mgr.Get(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

func renderString(r renderer, name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
