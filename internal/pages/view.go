package pages

import "html/template"

// Page is the data every template receives.
type Page struct {
	Meta     Meta
	SiteName string
	Year     int
	Data     any

	template string
	status   int
	noStore  bool
}

// Meta fills the document head.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	OGImage     string
	Article     bool
}

type Link struct {
	Label    string
	Href     string
	External bool
}

type HomeView struct {
	Links []Link
}

type ListingView struct {
	Posts []PostCard
	// Unavailable is set when the posts could not be retrieved.
	Unavailable bool
}

type PostCard struct {
	Title    string
	Href     string
	Date     string
	Excerpt  template.HTML
	ImageURL string
	ImageAlt string
	Priority bool
}

type PostView struct {
	Title   string
	Date    string
	HeroURL string
	HeroAlt string
	Body    template.HTML
}

type NotFoundView struct {
	Heading string
	Message string
}
