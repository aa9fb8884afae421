package providers

// Page is one fetched document, already decoded to UTF-8.
type Page struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Base is the URL relative links on the page resolve against.
func (p *Page) Base() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// Parser extracts chapter data from a fetched page. ExtractChapter returns
// empty content, not an error, when no body is recognisable.
type Parser interface {
	ExtractChapter(page *Page, index int) (title, content string)
	FindNextURL(page *Page) NextLink
}

type NextKind int

const (
	// Failed means the lookup could not be completed.
	Failed NextKind = iota
	Found
	NoMore
)

func (k NextKind) String() string {
	switch k {
	case Found:
		return "found"
	case NoMore:
		return "no-more"
	default:
		return "failed"
	}
}

// NextLink is the outcome of a next-chapter lookup. URL is set only for Found.
type NextLink struct {
	Kind NextKind
	URL  string
}

func FoundLink(u string) NextLink { return NextLink{Kind: Found, URL: u} }

func NoMoreLinks() NextLink { return NextLink{Kind: NoMore} }

func FailedLink() NextLink { return NextLink{Kind: Failed} }
