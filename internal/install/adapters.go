package install

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var adapterTemplates *template.Template

func init() {
	adapterTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))
}

// adapterData is what an adapter template is rendered with.
type adapterData struct {
	UID       string
	Framework string
	Target    string
}

// renderAdapter renders the template registered under step's
// template_key into the returned bytes. An unknown template_key is a
// configuration error in the manifest, not a panic.
func renderAdapter(step AdapterStep, uid, target string) ([]byte, error) {
	name := step.TemplateKey + ".tmpl"
	tmpl := adapterTemplates.Lookup(name)
	if tmpl == nil {
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("unknown adapter template_key %q", step.TemplateKey), nil)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, adapterData{UID: uid, Framework: step.Framework, Target: target}); err != nil {
		return nil, apperrors.NewIntegrityError("render adapter template", err)
	}
	return buf.Bytes(), nil
}
