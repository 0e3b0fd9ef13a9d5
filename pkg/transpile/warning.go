package transpile

// WarningCode classifies a construct the reverse transpiler could not
// translate exactly.
type WarningCode string

// Warning codes.
const (
	WarnUnsupportedLinkType   WarningCode = "UNSUPPORTED_LINK_TYPE"
	WarnDateGrouping          WarningCode = "DATE_GROUPING"
	WarnHaving                WarningCode = "HAVING"
	WarnUnsupportedAggregate  WarningCode = "UNSUPPORTED_AGGREGATE"
	WarnUnsupportedOperator   WarningCode = "UNSUPPORTED_OPERATOR"
	WarnColumnComparison      WarningCode = "COLUMN_COMPARISON"
	WarnPaging                WarningCode = "PAGING"
	WarnLinkFilterApproximate WarningCode = "LINK_FILTER_APPROXIMATED"
	WarnValidation            WarningCode = "VALIDATION"
)

// Warning reports a FetchXML construct that was dropped or approximated.
// Warnings are never fatal.
type Warning struct {
	Code    WarningCode
	Message string
	// Fragment is the source text of the offending start tag, if any.
	Fragment string
	Offset   int
}

func (w Warning) String() string {
	return string(w.Code) + ": " + w.Message
}

// maxFragment bounds Warning.Fragment.
const maxFragment = 160

// fragmentAt returns the start tag beginning at offset, honouring quoted
// attribute values.
func fragmentAt(src string, offset int) string {
	if offset < 0 || offset >= len(src) || src[offset] != '<' {
		return ""
	}
	var quote byte
	end := len(src)
	for i := offset + 1; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
		} else if c == '>' {
			end = i + 1
			break
		}
	}
	if end-offset > maxFragment {
		return src[offset:offset+maxFragment] + "..."
	}
	return src[offset:end]
}
