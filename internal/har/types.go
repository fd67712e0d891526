package har

// HAR is the top-level HTTP Archive document. Only the request side of each
// entry is modelled; everything else in the archive is ignored on decode.
type HAR struct {
	Log *Log `json:"log"`
}

// Log holds the recorded entries.
type Log struct {
	Version string   `json:"version"`
	Creator *Creator `json:"creator,omitempty"`
	Entries []*Entry `json:"entries"`
}

// Creator names the tool that recorded the archive.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Entry is one recorded exchange.
type Entry struct {
	StartedDateTime string   `json:"startedDateTime,omitempty"`
	Request         *Request `json:"request"`
}

// Request is the recorded request of an entry.
type Request struct {
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	HTTPVersion string    `json:"httpVersion,omitempty"`
	Headers     []*Header `json:"headers"`
	PostData    *PostData `json:"postData,omitempty"`
}

// Header is a recorded name/value pair.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PostData is the recorded request body.
type PostData struct {
	MimeType string       `json:"mimeType"`
	Params   []*PostParam `json:"params,omitempty"`
	Text     string       `json:"text,omitempty"`
}

// PostParam is a form field of a recorded body.
type PostParam struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}
