package rgaa

import (
	"fmt"
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleFieldNoLabel = rule{
		test:           "11.1.1",
		impact:         model.ImpactHigh,
		description:    "Form field has no label",
		recommendation: "Associate a label element with the field, or add aria-label or aria-labelledby",
	}
	ruleLabelForMissing = rule{
		test:           "11.1.2",
		impact:         model.ImpactMedium,
		description:    "Label references a field that does not exist",
		recommendation: "Make the for attribute match the id of the field it labels",
	}
	ruleEmptyLabel = rule{
		test:           "11.2.1",
		impact:         model.ImpactMedium,
		description:    "Label is empty",
		recommendation: "Give the label a text describing the expected input",
	}
	ruleRadioNoGroup = rule{
		test:           "11.5.1",
		impact:         model.ImpactMedium,
		description:    "Related radio buttons are not grouped",
		recommendation: `Wrap the radio buttons in a fieldset with a legend, or a role="radiogroup" with a name`,
	}
	ruleFieldsetNoLegend = rule{
		test:           "11.6.1",
		impact:         model.ImpactMedium,
		description:    "Field group has no legend",
		recommendation: "Add a legend as the first child of the fieldset",
	}
	ruleButtonNoName = rule{
		test:           "11.9.1",
		impact:         model.ImpactHigh,
		description:    "Button has no accessible name",
		recommendation: "Add text content, a value or an aria-label to the button",
	}
	ruleBadAutocomplete = rule{
		test:           "11.13.1",
		impact:         model.ImpactLow,
		description:    "Autocomplete attribute has an unknown value",
		recommendation: "Use an autofill token from the HTML specification, such as email or given-name",
	}
)

var unlabeledInputTypes = map[string]bool{
	"hidden": true, "submit": true, "reset": true, "button": true, "image": true,
}

var autocompleteTokens = map[string]bool{
	"on": true, "off": true, "name": true, "honorific-prefix": true, "given-name": true,
	"additional-name": true, "family-name": true, "honorific-suffix": true, "nickname": true,
	"email": true, "username": true, "new-password": true, "current-password": true,
	"one-time-code": true, "organization-title": true, "organization": true,
	"street-address": true, "address-line1": true, "address-line2": true, "address-line3": true,
	"address-level1": true, "address-level2": true, "address-level3": true, "address-level4": true,
	"country": true, "country-name": true, "postal-code": true, "cc-name": true,
	"cc-given-name": true, "cc-additional-name": true, "cc-family-name": true, "cc-number": true,
	"cc-exp": true, "cc-exp-month": true, "cc-exp-year": true, "cc-csc": true, "cc-type": true,
	"transaction-currency": true, "transaction-amount": true, "language": true, "bday": true,
	"bday-day": true, "bday-month": true, "bday-year": true, "sex": true, "url": true,
	"photo": true, "tel": true, "tel-country-code": true, "tel-national": true,
	"tel-area-code": true, "tel-local": true, "tel-extension": true, "impp": true,
	"webauthn": true,
}

// autocompleteModifiers may precede the autofill token.
var autocompleteModifiers = map[string]bool{
	"shipping": true, "billing": true, "home": true, "work": true,
	"mobile": true, "fax": true, "pager": true,
}

func (a *Analyzer) checkForms() {
	labelFor := make(map[string]bool)
	for _, l := range a.byTag("label") {
		if f := attrTrim(l, "for"); f != "" {
			labelFor[f] = true
			if _, ok := a.byID[f]; !ok {
				a.report(l, ruleLabelForMissing)
			}
		}
		if a.accessibleName(l) == "" {
			a.report(l, ruleEmptyLabel)
		}
	}

	radios := make(map[string][]dom.Element)
	var radioNames []string

	for _, e := range a.elems {
		if isHidden(e) {
			continue
		}
		switch e.Tag() {
		case "input", "select", "textarea":
			typ := strings.ToLower(attrTrim(e, "type"))
			if e.Tag() == "input" && unlabeledInputTypes[typ] {
				a.checkInputButton(e, typ)
				continue
			}
			if !a.hasLabel(e, labelFor) {
				a.report(e, ruleFieldNoLabel)
			}
			if typ == "radio" {
				name := attrTrim(e, "name")
				if _, seen := radios[name]; !seen {
					radioNames = append(radioNames, name)
				}
				radios[name] = append(radios[name], e)
			}
			if ac := attrTrim(e, "autocomplete"); ac != "" && !validAutocomplete(ac) {
				a.reportDesc(e, ruleBadAutocomplete, fmt.Sprintf("Autocomplete value %q is not a known autofill token", ac))
			}
		case "button":
			if a.accessibleName(e) == "" {
				a.report(e, ruleButtonNoName)
			}
		case "fieldset":
			if !hasLegend(e) {
				a.report(e, ruleFieldsetNoLegend)
			}
		}
		if role(e) == "button" && e.Tag() != "button" && e.Tag() != "input" && a.accessibleName(e) == "" {
			a.report(e, ruleButtonNoName)
		}
	}

	for _, name := range radioNames {
		group := radios[name]
		if name == "" || len(group) < 2 {
			continue
		}
		if !grouped(group[0]) {
			a.reportDesc(group[0], ruleRadioNoGroup, fmt.Sprintf("Radio buttons named %q are not grouped", name))
		}
	}
}

func (a *Analyzer) checkInputButton(e dom.Element, typ string) {
	if typ != "button" {
		return
	}
	if attrTrim(e, "value") == "" && attrTrim(e, "aria-label") == "" &&
		attrTrim(e, "aria-labelledby") == "" && attrTrim(e, "title") == "" {
		a.report(e, ruleButtonNoName)
	}
}

func (a *Analyzer) hasLabel(e dom.Element, labelFor map[string]bool) bool {
	if id := attrTrim(e, "id"); id != "" && labelFor[id] {
		return true
	}
	if dom.Closest(e, "label") != nil {
		return true
	}
	if attrTrim(e, "aria-label") != "" || attrTrim(e, "title") != "" {
		return true
	}
	for _, id := range strings.Fields(dom.AttrOr(e, "aria-labelledby", "")) {
		if _, ok := a.byID[id]; ok {
			return true
		}
	}
	return false
}

func hasLegend(fieldset dom.Element) bool {
	for _, c := range fieldset.Children() {
		if c.Tag() == "legend" && c.Text() != "" {
			return true
		}
	}
	return attrTrim(fieldset, "aria-label") != "" || attrTrim(fieldset, "aria-labelledby") != ""
}

func grouped(e dom.Element) bool {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if p.Tag() == "fieldset" {
			return true
		}
		if r := role(p); r == "radiogroup" || r == "group" {
			return true
		}
	}
	return false
}

func validAutocomplete(v string) bool {
	tokens := strings.Fields(strings.ToLower(v))
	if len(tokens) == 0 {
		return false
	}
	last := tokens[len(tokens)-1]
	if last == "webauthn" && len(tokens) > 1 {
		last = tokens[len(tokens)-2]
	}
	if !autocompleteTokens[last] {
		return false
	}
	for _, t := range tokens[:len(tokens)-1] {
		if !autocompleteModifiers[t] && !strings.HasPrefix(t, "section-") && t != last && t != "webauthn" {
			return false
		}
	}
	return true
}
