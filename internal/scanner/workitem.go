package scanner

// SourceHint records how a probe unit was derived from the target.
type SourceHint string

const (
	HintPath           SourceHint = "path"            // scheme + word-list or fixed path
	HintScheme         SourceHint = "scheme"          // bare scheme variant of the host
	HintExternalSource SourceHint = "external_source" // third-party lookup service URL
)

// ProbeUnit is a single fully-formed request target. Units are values and
// are never modified after the resolver creates them.
type ProbeUnit struct {
	URL  string     `json:"url"`
	Hint SourceHint `json:"source_hint"`
}
