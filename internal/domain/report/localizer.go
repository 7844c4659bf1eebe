package report

// Localizer renders an item name for display. Aggregation always groups by
// the stored name; localization only touches exported output.
type Localizer interface {
	Localize(name string) string
}

// IdentityLocalizer returns names unchanged.
type IdentityLocalizer struct{}

// Localize implements Localizer
func (IdentityLocalizer) Localize(name string) string { return name }

// LocalizerFunc adapts a function to Localizer.
type LocalizerFunc func(name string) string

// Localize implements Localizer
func (f LocalizerFunc) Localize(name string) string { return f(name) }
