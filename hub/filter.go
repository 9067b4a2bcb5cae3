package hub

// Filter selects the sources a subscriber receives: one source id, All, or
// None to pause delivery.
type Filter string

const (
	All  Filter = "all"
	None Filter = ""
)

// Match reports whether records from source pass the filter.
func (f Filter) Match(source string) bool {
	return f == All || (f != None && string(f) == source)
}
