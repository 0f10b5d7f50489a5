package site

import (
	"fmt"
	"strings"
)

// writeSimpleProject writes simple/<name>/index.html linking every file of the
// project's non-yanked releases.
func (g *Generator) writeSimpleProject(v *projectView) error {
	var list strings.Builder
	for _, r := range v.releases {
		if r.Yanked() {
			continue
		}
		for _, f := range v.files[r.ID()] {
			fmt.Fprintf(&list, "\n    <a href=\"%s\">%s</a><br/>", esc(g.fileURL(f)), esc(f.Name()))
		}
	}
	return g.write("simple_project", []byte(g.simplePage(list.String())), SimpleDir, v.project.Name(), "index.html")
}

// writeSimpleIndex writes simple/index.html listing every project.
func (g *Generator) writeSimpleIndex(views []*projectView) error {
	var list strings.Builder
	for _, v := range views {
		name := esc(v.project.Name())
		fmt.Fprintf(&list, "\n    <a class=\"card\" href=\"%s/\">%s</a><br/>", name, name)
	}
	return g.write("simple_index", []byte(g.simplePage(list.String())), SimpleDir, "index.html")
}

func (g *Generator) simplePage(list string) string {
	return g.fill("simple", map[string]string{
		"WAREHUB_VERSION": esc(g.version),
		"TITLE":           esc(g.site.Title),
		"IMAGE":           esc(g.site.ImageURL),
		"LIST":            list,
	})
}
