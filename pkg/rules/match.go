package rules

import (
	"path/filepath"
	"strings"
)

// Match returns the folder of the first rule in g whose lower-cased keyword
// is a substring of the lower-cased file name or equals its extension
// (including the dot). Hidden files are not filtered here.
func Match(g *Group, fileName string) (string, bool) {
	if g == nil {
		return "", false
	}
	name := strings.ToLower(fileName)
	ext := strings.ToLower(filepath.Ext(fileName))

	for _, r := range g.rules {
		kw := strings.ToLower(r.Keyword)
		if strings.Contains(name, kw) || (ext != "" && kw == ext) {
			return r.Folder, true
		}
	}
	return "", false
}
