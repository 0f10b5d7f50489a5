package site

import (
	"fmt"
	"sort"
	"strings"

	"github.com/warehub/warehub/internal/db/models"
	"github.com/warehub/warehub/internal/render"
)

// writeProject writes project/<name>/index.html for the latest release and
// project/<name>/<version>/index.html for every release.
func (g *Generator) writeProject(v *projectView) error {
	name := v.project.Name()
	for _, r := range v.releases {
		page, err := g.releasePage(v, r, true)
		if err != nil {
			return err
		}
		if err := g.write("release", []byte(page), ProjectDir, name, r.Version(), "index.html"); err != nil {
			return err
		}
	}

	page, err := g.releasePage(v, v.latest, false)
	if err != nil {
		return err
	}
	return g.write("project", []byte(page), ProjectDir, name, "index.html")
}

func (g *Generator) releasePage(v *projectView, r *models.Release, pinned bool) (string, error) {
	description, err := render.Description(deref(r.Description()), deref(r.DescriptionContentType()))
	if err != nil {
		return "", fmt.Errorf("failed to render description of %s %s: %w", v.project.Name(), r.Version(), err)
	}

	pip := ""
	if pinned {
		pip = "==" + r.Version()
	}

	return g.fill("release", map[string]string{
		"WAREHUB_VERSION": esc(g.version),
		"URL":             esc(g.url),
		"TITLE":           esc(g.site.Title),
		"IMAGE":           esc(g.site.ImageURL),
		"NAME":            esc(v.project.Name()),
		"VERSION":         esc(r.Version()),
		"PIP_VERSION":     esc(pip),
		"SUMMARY":         esc(deref(r.Summary())),
		"LINKS":           links(r),
		"META":            meta(r),
		"CLASSIFIERS":     classifiers(r.Classifiers()),
		"DESCRIPTION":     description,
		"RELEASES":        g.releaseCards(v),
		"FILES":           g.fileCards(v.files[r.ID()]),
	}), nil
}

func links(r *models.Release) string {
	indent := strings.Repeat(" ", 20)
	var b strings.Builder
	for _, l := range r.URLs() {
		fmt.Fprintf(&b, "\n%s<li><a href=\"%s\" rel=\"nofollow\">%s</a></li>", indent, esc(l.URL), esc(l.Name))
	}
	return b.String()
}

func person(name, email *string) string {
	n := esc(deref(name))
	if e := deref(email); e != "" {
		return fmt.Sprintf(`<a href="mailto:%s">%s</a>`, esc(e), n)
	}
	return n
}

// meta lists the sidebar facts in a fixed order, skipping unset ones.
func meta(r *models.Release) string {
	entries := []struct {
		name  string
		check *string
		value string
	}{
		{"License", r.License(), esc(deref(r.License()))},
		{"Author", r.Author(), person(r.Author(), r.AuthorEmail())},
		{"Maintainer", r.Maintainer(), person(r.Maintainer(), r.MaintainerEmail())},
		{"Requires", r.RequiresPython(), esc(deref(r.RequiresPython()))},
		{"Platform", r.Platform(), esc(deref(r.Platform()))},
	}

	indent := strings.Repeat(" ", 16)
	var b strings.Builder
	for _, e := range entries {
		if deref(e.check) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s<p class=\"elem\"><strong>%s: </strong>%s</p>", indent, e.name, e.value)
	}
	return b.String()
}

// classifiers groups "Group :: rest" entries by group in first-seen order,
// with each group's tags sorted.
func classifiers(list []string) string {
	var order []string
	groups := make(map[string][]string)
	for _, c := range list {
		group, tag, found := strings.Cut(c, " :: ")
		if _, ok := groups[group]; !ok {
			order = append(order, group)
			groups[group] = nil
		}
		if found {
			groups[group] = append(groups[group], tag)
		}
	}

	indent := strings.Repeat(" ", 20)
	tagIndent := strings.Repeat(" ", 28)
	var b strings.Builder
	for _, group := range order {
		tags := groups[group]
		sort.Strings(tags)
		var items strings.Builder
		for _, tag := range tags {
			fmt.Fprintf(&items, "\n%s<li>%s</li>", tagIndent, esc(tag))
		}
		b.WriteString(strings.Join([]string{
			"",
			indent + "<li>",
			indent + "    <strong>" + esc(group) + "</strong>",
			indent + "    <ul>" + items.String(),
			indent + "    </ul>",
			indent + "</li>",
		}, "\n"))
	}
	return b.String()
}

func (g *Generator) releaseCards(v *projectView) string {
	indent := strings.Repeat(" ", 16)
	var b strings.Builder
	for _, r := range v.releases {
		version := esc(r.Version())
		b.WriteString(strings.Join([]string{
			"",
			indent + `<a class="card" href="` + esc(g.releaseURL(v.project.Name(), r.Version())) + `">`,
			indent + `    <span class="version">` + version + `</span>`,
			indent + "</a>",
		}, "\n"))
	}
	return b.String()
}

func (g *Generator) fileCards(files []*models.File) string {
	indent := strings.Repeat(" ", 16)
	var b strings.Builder
	for _, f := range files {
		b.WriteString(strings.Join([]string{
			"",
			indent + `<a class="card" href="` + esc(g.fileURL(f)) + `">`,
			indent + "    " + esc(f.Name()),
			indent + "</a>",
		}, "\n"))
	}
	return b.String()
}

// writeHomepage writes index.html with one card per project.
func (g *Generator) writeHomepage(views []*projectView) error {
	indent := strings.Repeat(" ", 8)
	var cards strings.Builder
	for _, v := range views {
		name := esc(v.project.Name())
		cards.WriteString(strings.Join([]string{
			"",
			indent + `<a class="card" href="` + ProjectDir + "/" + name + `/">`,
			indent + "    " + name + `<span class="version">` + esc(v.latest.Version()) + "</span>",
			indent + `    <span class="description">` + esc(deref(v.latest.Summary())) + "</span>",
			indent + "</a>",
		}, "\n"))
	}

	page := g.fill("homepage", map[string]string{
		"WAREHUB_VERSION": esc(g.version),
		"URL":             esc(g.url),
		"TITLE":           esc(g.site.Title),
		"DESCRIPTION":     esc(g.site.Description),
		"IMAGE":           esc(g.site.ImageURL),
		"PACKAGES":        cards.String(),
	})
	return g.write("home", []byte(page), "index.html")
}
