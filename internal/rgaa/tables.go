package rgaa

import (
	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleLayoutTableMarkup = rule{
		test:           "5.3.1",
		impact:         model.ImpactMedium,
		description:    "Layout table uses data table markup",
		recommendation: "Remove caption, th, thead and summary from tables used for layout",
	}
	ruleTableNoCaption = rule{
		test:           "5.4.1",
		impact:         model.ImpactMedium,
		description:    "Data table has no caption or accessible name",
		recommendation: "Add a caption element or an aria-label to the table",
	}
	ruleEmptyHeader = rule{
		test:           "5.6.1",
		impact:         model.ImpactHigh,
		description:    "Table header cell is empty",
		recommendation: "Give every th a text content describing its row or column",
	}
	ruleHeaderNoScope = rule{
		test:           "5.7.1",
		impact:         model.ImpactMedium,
		description:    "Header cell of a table with row and column headers has no scope or id",
		recommendation: `Add scope="col" or scope="row", or link cells with id and headers attributes`,
	}
)

func (a *Analyzer) checkTables() {
	for _, t := range a.byTag("table") {
		if isHidden(t) {
			continue
		}
		cells := ownCells(t)
		headers := dom.ByTag(cells, "th")

		if isPresentational(t) {
			if len(headers) > 0 || len(ownDescendants(t, "caption", "thead")) > 0 || dom.HasAttr(t, "summary") {
				a.report(t, ruleLayoutTableMarkup)
			}
			continue
		}
		if len(headers) == 0 {
			continue
		}

		if len(ownDescendants(t, "caption")) == 0 && attrTrim(t, "aria-label") == "" &&
			attrTrim(t, "aria-labelledby") == "" && attrTrim(t, "title") == "" {
			a.report(t, ruleTableNoCaption)
		}

		rows := make(map[dom.Element]bool)
		for _, th := range headers {
			if th.Text() == "" && attrTrim(th, "aria-label") == "" && !hasImageName(th) {
				a.report(th, ruleEmptyHeader)
			}
			if p := th.Parent(); p != nil {
				rows[p] = true
			}
		}

		if !hasRowAndColumnHeaders(t, headers) || len(rows) < 2 {
			continue
		}
		for _, th := range headers {
			if attrTrim(th, "scope") == "" && attrTrim(th, "id") == "" {
				a.report(th, ruleHeaderNoScope)
			}
		}
	}
}

// ownCells returns the td and th cells belonging to t, excluding those of
// nested tables.
func ownCells(t dom.Element) []dom.Element {
	return ownDescendants(t, "td", "th")
}

func ownDescendants(t dom.Element, tags ...string) []dom.Element {
	var out []dom.Element
	var walk func(dom.Element)
	walk = func(n dom.Element) {
		for _, c := range n.Children() {
			if c.Tag() == "table" {
				continue
			}
			for _, tag := range tags {
				if c.Tag() == tag {
					out = append(out, c)
					break
				}
			}
			walk(c)
		}
	}
	walk(t)
	return out
}

// hasRowAndColumnHeaders reports whether some th is the first cell of a body
// row while another th sits in a row made only of headers.
func hasRowAndColumnHeaders(t dom.Element, headers []dom.Element) bool {
	var rowHeader, colHeader bool
	for _, th := range headers {
		row := th.Parent()
		if row == nil {
			continue
		}
		cells := dom.ByTag(row.Children(), "td", "th")
		if len(dom.ByTag(cells, "td")) == 0 {
			colHeader = true
		} else if len(cells) > 0 && cells[0] == th {
			rowHeader = true
		}
	}
	return rowHeader && colHeader
}

func hasImageName(e dom.Element) bool {
	for _, d := range dom.Descendants(e) {
		if d.Tag() == "img" && attrTrim(d, "alt") != "" {
			return true
		}
	}
	return false
}
