package sandbox

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
)

//go:embed bootstrap.html
var bootstrapHTML string

var bootstrapTmpl = template.Must(template.New("bootstrap").Parse(bootstrapHTML))

// renderBootstrap produces the viewer host page with the vendor script
// URL baked in. The markup is otherwise fixed: one mount element and the
// bridge script.
func renderBootstrap(scriptURL string) ([]byte, error) {
	var buf bytes.Buffer
	data := struct{ ScriptURL string }{ScriptURL: scriptURL}
	if err := bootstrapTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render bootstrap page: %w", err)
	}
	return buf.Bytes(), nil
}
