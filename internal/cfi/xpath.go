package cfi

import (
	"strconv"
	"strings"
)

// StepsToXPath renders steps as an XPath expression evaluated from the
// document node. Text steps count text() children only, so the expression
// matches WalkToNode for trees without ignorable markup.
func StepsToXPath(steps []Step) string {
	parts := []string{".", "*"}
	for _, st := range steps {
		pos := strconv.Itoa(st.Index + 1)
		switch {
		case st.ID != "":
			parts = append(parts, "*[position()="+pos+" and @id='"+st.ID+"']")
		case st.Kind == TextStep:
			parts = append(parts, "text()["+pos+"]")
		default:
			parts = append(parts, "*["+pos+"]")
		}
	}
	return strings.Join(parts, "/")
}
