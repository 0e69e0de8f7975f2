package utils

import (
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

const embedTemplate = `<div class="video-container"><iframe src="https://www.youtube.com/embed/%s" frameborder="0" allowfullscreen allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"></iframe></div>`

// EnhanceHTMLContent lazy-loads images and turns paragraphs holding a bare
// YouTube link into a trailer embed.
func EnhanceHTMLContent(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if !strings.HasPrefix(text, "http") || strings.ContainsAny(text, " \n") {
			return
		}
		if id := YouTubeID(text); id != "" {
			s.ReplaceWithHtml(fmt.Sprintf(embedTemplate, id))
		}
	})

	// goquery wraps fragments in html/body; only the body content is wanted
	out, _ := doc.Find("body").Html()
	if out == "" {
		out, _ = doc.Html()
	}
	return template.HTML(out)
}

// YouTubeID extracts the video id from youtube.com/watch, youtu.be and
// youtube.com/shorts links. It returns "" for anything else.
func YouTubeID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		}
	case "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
	}
	id = strings.TrimSuffix(id, "/")
	if !youtubeID.MatchString(id) {
		return ""
	}
	return id
}
