package incident

import "strings"

// Class is the display category of an incident.
type Class string

const (
	ClassCrash        Class = "crash"
	ClassConstruction Class = "construction"
	ClassClosure      Class = "closure"
	ClassWeather      Class = "weather"
	ClassOther        Class = "other"
)

// classRules are checked in order; the first group with a matching keyword
// decides the class.
var classRules = []struct {
	class    Class
	keywords []string
}{
	{ClassCrash, []string{"crash", "accident"}},
	{ClassConstruction, []string{"construction"}},
	{ClassClosure, []string{"closure", "closed"}},
	{ClassWeather, []string{"weather", "flood"}},
}

// Classify maps a free-text category onto a Class.
func Classify(category string) Class {
	c := strings.ToLower(category)
	for _, rule := range classRules {
		for _, k := range rule.keywords {
			if strings.Contains(c, k) {
				return rule.class
			}
		}
	}
	return ClassOther
}

// CSSClass is the table style used for the class.
func (c Class) CSSClass() string {
	return "incident-" + string(c)
}
