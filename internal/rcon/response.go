package rcon

// Kind discriminates what the transport handed back for one query.
type Kind int

const (
	// KindAbsent means no answer: a failed query or nothing received.
	KindAbsent Kind = iota
	KindText
	// KindNonText means a reply arrived but not as a response-value packet.
	KindNonText
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindText:
		return "text"
	case KindNonText:
		return "non-text"
	default:
		return "unknown"
	}
}

// Response is the raw result of one status query. The zero value is Absent.
type Response struct {
	kind Kind
	body string
}

func Text(body string) Response { return Response{kind: KindText, body: body} }
func Absent() Response          { return Response{kind: KindAbsent} }
func NonText() Response         { return Response{kind: KindNonText} }

func (r Response) Kind() Kind { return r.kind }

// Body returns the text payload and whether the response carried text at all.
func (r Response) Body() (string, bool) {
	if r.kind != KindText {
		return "", false
	}
	return r.body, true
}
