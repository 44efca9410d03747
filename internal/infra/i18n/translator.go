package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator resolves user-facing reply templates from an embedded YAML
// catalog. Keys that are missing come back verbatim so a catalog gap is
// visible instead of silent.
type Translator struct {
	replies map[string]string
}

func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))

	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read reply catalog %s: %w", filePath, err)
	}

	var replies map[string]string
	if err := yaml.Unmarshal(data, &replies); err != nil {
		return nil, fmt.Errorf("parse reply catalog: %w", err)
	}

	return &Translator{replies: replies}, nil
}

// T resolves a reply template, applying fmt args when present.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.replies[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
