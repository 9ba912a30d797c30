// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// CorrectionKind tags the outcome of a line-number correction round trip.
type CorrectionKind int

const (
	CorrectionSuccess       CorrectionKind = iota // Patch rewritten with corrected tags
	CorrectionMappingFailed                       // Sub-agent could not map the patch onto the file
	CorrectionSyntaxError                         // Sub-agent rejected the patch grammar
	CorrectionError                               // Transport failure or unusable response
)

func (k CorrectionKind) String() string {
	switch k {
	case CorrectionSuccess:
		return "success"
	case CorrectionMappingFailed:
		return "mapping_failed"
	case CorrectionSyntaxError:
		return "syntax_error"
	case CorrectionError:
		return "error"
	default:
		return "unknown"
	}
}

// CorrectionResult is the outcome of one correction request. Exactly one of
// CorrectedPatch (Success) or Detail (everything else) is meaningful.
type CorrectionResult struct {
	Kind           CorrectionKind
	CorrectedPatch string
	Detail         string // Reason, syntax message, or error text
	Applied        int    // Mapping entries rewritten into the patch
	Skipped        int    // Mapping entries whose tag could not be located
}

// OK reports whether the corrected patch can be used.
func (r CorrectionResult) OK() bool {
	return r.Kind == CorrectionSuccess
}
