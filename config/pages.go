package config

// Page identifies a routed view.
type Page int

const (
	PageLanding Page = iota
	PageProfile
	PageDonate
	PageExplorer
	PageAbout
)

var pagePaths = map[Page]string{
	PageLanding:  "/",
	PageProfile:  "/profile",
	PageDonate:   "/donate",
	PageExplorer: "/donations",
	PageAbout:    "/about",
}

var pageTitles = map[Page]string{
	PageLanding:  "HOME",
	PageProfile:  "PROFILE",
	PageDonate:   "DONATE",
	PageExplorer: "EXPLORER",
	PageAbout:    "ABOUT",
}

// Path returns the route of the page.
func (p Page) Path() string {
	if path, ok := pagePaths[p]; ok {
		return path
	}
	return "/"
}

func (p Page) String() string {
	if t, ok := pageTitles[p]; ok {
		return t
	}
	return "HOME"
}

// PageForPath maps a route to its page. Unknown paths fall back to the landing
// page and report false.
func PageForPath(path string) (Page, bool) {
	if path == "" {
		return PageLanding, true
	}
	if path[0] != '/' {
		path = "/" + path
	}
	for p, candidate := range pagePaths {
		if candidate == path {
			return p, true
		}
	}
	return PageLanding, false
}
