package policy

import (
	"github.com/chromedp/cdproto/network"
)

// Category is the kind of sub-resource a page requests; it is the unit of the blocking policy
type Category string

const (
	CategoryDocument    Category = "document"
	CategoryStylesheet  Category = "stylesheet"
	CategoryImage       Category = "image"
	CategoryFont        Category = "font"
	CategoryScript      Category = "script"
	CategoryXHR         Category = "xhr"
	CategoryFetch       Category = "fetch"
	CategoryWebSocket   Category = "websocket"
	CategoryMedia       Category = "media"
	CategoryEventSource Category = "eventsource"
	CategoryOther       Category = "other"
)

// resourceTypeCategories maps CDP resource types onto policy categories
// Anything missing from this table is CategoryOther
var resourceTypeCategories = map[network.ResourceType]Category{
	network.ResourceTypeDocument:    CategoryDocument,
	network.ResourceTypeStylesheet:  CategoryStylesheet,
	network.ResourceTypeImage:       CategoryImage,
	network.ResourceTypeFont:        CategoryFont,
	network.ResourceTypeScript:      CategoryScript,
	network.ResourceTypeXHR:         CategoryXHR,
	network.ResourceTypeFetch:       CategoryFetch,
	network.ResourceTypeWebSocket:   CategoryWebSocket,
	network.ResourceTypeMedia:       CategoryMedia,
	network.ResourceTypeEventSource: CategoryEventSource,
}

// CategoryOf returns the policy category for a CDP resource type
func CategoryOf(rt network.ResourceType) Category {
	if c, ok := resourceTypeCategories[rt]; ok {
		return c
	}
	return CategoryOther
}

// Policy is a declarative allow table; categories not listed are aborted
type Policy struct {
	Name    string
	allowed map[Category]bool
}

// New builds a Policy that allows exactly the given categories
func New(name string, allowed ...Category) Policy {
	p := Policy{Name: name, allowed: make(map[Category]bool, len(allowed))}
	for _, c := range allowed {
		p.allowed[c] = true
	}
	return p
}

// Allows reports whether requests of category c may continue
func (p Policy) Allows(c Category) bool {
	return p.allowed[c]
}

// AllowsResource is Allows applied to a CDP resource type
func (p Policy) AllowsResource(rt network.ResourceType) bool {
	return p.Allows(CategoryOf(rt))
}

// Allowed lists the permitted categories in table order, for logging
func (p Policy) Allowed() []Category {
	out := make([]Category, 0, len(p.allowed))
	for _, c := range AllCategories {
		if p.allowed[c] {
			out = append(out, c)
		}
	}
	return out
}

// AllCategories is every category in a stable order
var AllCategories = []Category{
	CategoryDocument,
	CategoryStylesheet,
	CategoryImage,
	CategoryFont,
	CategoryScript,
	CategoryXHR,
	CategoryFetch,
	CategoryWebSocket,
	CategoryMedia,
	CategoryEventSource,
	CategoryOther,
}

var (
	// Capture is applied to the screenshot page: static visual resources only
	Capture = New("capture", CategoryDocument, CategoryStylesheet, CategoryImage, CategoryFont)

	// Harvest is applied to the cookie preflight page: the top-level document and its redirects
	Harvest = New("harvest", CategoryDocument)
)
