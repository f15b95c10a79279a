package normalize

import (
	"strings"

	"golang.org/x/text/cases"
)

const (
	SourceReferral = "Referral"
	SourceVendor   = "Vendor"
)

var folder = cases.Fold()

// ClassifySource maps a raw source to Referral or Vendor. Any non-referral
// source is treated as a vendor and back-fills vendor only when it is empty.
func ClassifySource(rawSource, vendor string) (string, string) {
	src := strings.TrimSpace(rawSource)
	switch {
	case src == "":
		return rawSource, vendor
	case folder.String(src) == folder.String(SourceReferral):
		return SourceReferral, vendor
	default:
		if strings.TrimSpace(vendor) == "" {
			return SourceVendor, src
		}
		return SourceVendor, vendor
	}
}
