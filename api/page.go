package api

// ParamsKey is the reserved PageContext key carrying the route parameters
// extracted from the page's URL.
const ParamsKey = "__params"

// Page is a single page registration produced from a collection route.
type Page struct {
	// Path is the URL path of the page, e.g. "/product/blue-hat/".
	Path string `json:"path"`
	// MatchPath is an optional client-side route pattern (":id", "*rest").
	MatchPath string `json:"matchPath,omitempty"`
	// Component is the absolute path of the page component source file.
	Component string `json:"component"`
	// Context is handed to the component's own query as variables.
	Context PageContext `json:"context"`
}

// PageContext is the data attached to a page. It holds the reverse-lookup
// field values of the record plus the route parameters under ParamsKey.
type PageContext map[string]any

// Params returns the route parameters stored under ParamsKey.
func (c PageContext) Params() map[string]string {
	p, _ := c[ParamsKey].(map[string]string)
	return p
}
