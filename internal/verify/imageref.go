package verify

import "strings"

// RefKind identifies the format of an image reference.
type RefKind int

const (
	RefDataURI           RefKind = iota // data:image/...;base64,...
	RefAbsoluteURL                      // http:// or https://
	RefUploadsPath                      // /uploads/...
	RefProductImagesPath                // product-images/...
	RefBareFilename                     // anything else
)

func (k RefKind) String() string {
	switch k {
	case RefDataURI:
		return "data-uri"
	case RefAbsoluteURL:
		return "absolute-url"
	case RefUploadsPath:
		return "uploads-path"
	case RefProductImagesPath:
		return "product-images-path"
	case RefBareFilename:
		return "bare-filename"
	default:
		return "unknown"
	}
}

// ImageRef is a classified image reference.
type ImageRef struct {
	Kind RefKind
	Raw  string
}

// ClassifyImageRef determines the kind of ref. Prefixes are checked in a
// fixed order and the first match wins.
func ClassifyImageRef(ref string) ImageRef {
	var kind RefKind
	switch {
	case strings.HasPrefix(ref, "data:image"):
		kind = RefDataURI
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		kind = RefAbsoluteURL
	case strings.HasPrefix(ref, "/uploads/"):
		kind = RefUploadsPath
	case strings.HasPrefix(ref, "product-images/"):
		kind = RefProductImagesPath
	default:
		kind = RefBareFilename
	}
	return ImageRef{Kind: kind, Raw: ref}
}

// IsRemote reports whether resolving the ref requires a network fetch.
func (r ImageRef) IsRemote() bool {
	return r.Kind != RefDataURI
}

// URL returns the address to fetch the image from, relative to the server
// base URL. It returns an empty string for data URIs.
func (r ImageRef) URL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	switch r.Kind {
	case RefAbsoluteURL:
		return r.Raw
	case RefUploadsPath:
		return baseURL + r.Raw
	case RefProductImagesPath:
		return baseURL + "/uploads/" + r.Raw
	case RefBareFilename:
		return baseURL + "/uploads/product-images/" + r.Raw
	default:
		return ""
	}
}
