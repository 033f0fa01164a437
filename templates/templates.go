package templates

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed *.html
var files embed.FS

// Choice is one line of a rendered option list.
type Choice struct {
	Key  string
	Text string
}

var funcs = template.FuncMap{
	"add":     func(a, b int) int { return a + b },
	"choices": Choices,
	"answer":  Answer,
}

// Load parses the page templates from dir, or the embedded copies when dir is empty.
func Load(dir string) (*template.Template, error) {
	tmpl := template.New("").Funcs(funcs)
	if dir == "" {
		return tmpl.ParseFS(files, "*.html")
	}
	return tmpl.ParseFS(os.DirFS(filepath.Clean(dir)), "*.html")
}

// Choices flattens decoded options into display order. Keyed options are sorted by key,
// listed options are lettered A, B, C...
func Choices(options any) []Choice {
	switch v := options.(type) {
	case nil:
		return nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Choice, 0, len(keys))
		for _, k := range keys {
			out = append(out, Choice{Key: k, Text: fmt.Sprint(v[k])})
		}
		return out
	case []any:
		out := make([]Choice, 0, len(v))
		for i, text := range v {
			out = append(out, Choice{Key: letter(i), Text: fmt.Sprint(text)})
		}
		return out
	default:
		return []Choice{{Text: fmt.Sprint(v)}}
	}
}

// Answer renders a stored answer for display: "A" for a single key, "A, C" for a list.
// Text that is not JSON is shown as is.
func Answer(value any) string {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	case string:
		raw = []byte(v)
	case fmt.Stringer:
		raw = []byte(v.String())
	default:
		return fmt.Sprint(v)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}
	switch d := decoded.(type) {
	case nil:
		return ""
	case []any:
		keys := make([]string, 0, len(d))
		for _, k := range d {
			keys = append(keys, fmt.Sprint(k))
		}
		return strings.Join(keys, ", ")
	case map[string]any:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return strings.Join(keys, ", ")
	default:
		return fmt.Sprint(d)
	}
}

func letter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprint(i + 1)
}
