package verify

import "encoding/base64"

// AutoApproveThreshold is the minimum confidence for a valid listing to skip
// human moderation.
const AutoApproveThreshold = 0.85

// Request describes a product listing to verify.
type Request struct {
	ProductName  string `json:"productName"`
	Description  string `json:"description"`
	CategoryName string `json:"categoryName"`
	ImageRef     string `json:"imageRef"`
}

// ImagePayload is an image resolved into memory for a single verification call.
type ImagePayload struct {
	Data     string // base64 encoded image bytes
	MIMEType string
}

// Bytes decodes the base64 image data.
func (p *ImagePayload) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Data)
}

// DataURI encodes the payload as a data URI that Resolve decodes without
// network I/O.
func (p *ImagePayload) DataURI() string {
	return "data:" + p.MIMEType + ";base64," + p.Data
}

// Result is the outcome of verifying a listing.
type Result struct {
	IsValid      bool    `json:"isValid"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
	AutoApproved bool    `json:"autoApproved"`
}

// Rejection returns the result used for every failed verification.
func Rejection(reason string) Result {
	return Result{
		IsValid:      false,
		Confidence:   0,
		Reason:       reason,
		AutoApproved: false,
	}
}

// withAutoApproval recomputes AutoApproved from IsValid and Confidence.
// Whatever the model claimed for autoApproved is ignored.
func (r Result) withAutoApproval() Result {
	r.AutoApproved = r.IsValid && r.Confidence >= AutoApproveThreshold
	return r
}
