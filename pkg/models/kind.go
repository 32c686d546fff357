package models

// LinkKind classifies an extracted link
type LinkKind string

const (
	LinkKindUnset    LinkKind = ""         // Zero value = unclassified
	LinkKindInternal LinkKind = "internal" // Same host as the rendered page
	LinkKindExternal LinkKind = "external" // Different host
	LinkKindAnchor   LinkKind = "anchor"   // Fragment on the current page
	LinkKindDownload LinkKind = "download" // File the preview cannot display
)

// String implements fmt.Stringer for logging
func (k LinkKind) String() string {
	if k == "" {
		return "unset"
	}
	return string(k)
}

// IsValid returns true if the kind may appear in a result
func (k LinkKind) IsValid() bool {
	switch k {
	case LinkKindInternal, LinkKindExternal, LinkKindAnchor, LinkKindDownload:
		return true
	}
	return false
}

// OpensExternally reports whether the shell should hand links of this kind to the OS instead of rendering them
func (k LinkKind) OpensExternally() bool {
	return k == LinkKindDownload
}
