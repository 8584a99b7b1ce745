package model

import "strings"

// DisplayName prefers the oncotree subtype, falling back to the main type
// and finally the code.
func (ct *CancerType) DisplayName() string {
	if ct == nil {
		return ""
	}
	if ct.Subtype != "" {
		return ct.Subtype
	}
	if ct.MainType != "" {
		return ct.MainType
	}
	return ct.Code
}

// CancerTypesName renders a tumor's cancer-type pair for display and history
// locations, e.g. "Melanoma, Other {excluding Uveal Melanoma}".
func CancerTypesName(cancerTypes, excluded []*CancerType) string {
	var b strings.Builder
	for i, ct := range cancerTypes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ct.DisplayName())
	}
	if len(excluded) > 0 {
		b.WriteString(" {excluding ")
		for i, ct := range excluded {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ct.DisplayName())
		}
		b.WriteString("}")
	}
	return b.String()
}
