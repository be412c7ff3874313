package web

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/util"
	"github.com/gorilla/feeds"
)

// GetRSS renders feed entries as RSS 2.0. With a username, only that
// author's posts are included.
func GetRSS(conf *util.AppConfig, items []domain.FeedItem, username string) (string, error) {
	link := fmt.Sprintf("http://%s:%d/feed", conf.Conf.Host, conf.Conf.HttpPort)
	title := "All Stegogram Posts"
	author := "everyone"

	if username != "" {
		title = fmt.Sprintf("Stegogram Posts - %s", username)
		author = username
		link = fmt.Sprintf("%s?username=%s", link, username)
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "images shared on stegogram",
		Author:      &feeds.Author{Name: author, Email: fmt.Sprintf("%s@%s", author, util.Name)},
		Created:     time.Now(),
	}

	for i, item := range items {
		if username != "" && !strings.EqualFold(item.Author, username) {
			continue
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:      fmt.Sprintf("%s-%d-%d", item.UserID, item.CreatedAt.Unix(), i),
			Title:   fmt.Sprintf("%s at %s", item.Author, item.CreatedAt.Format(util.DateTimeFormat())),
			Link:    &feeds.Link{Href: item.ImageURI},
			Content: fmt.Sprintf(`<img src="%s" alt="posted by %s"/>`, html.EscapeString(item.ImageURI), html.EscapeString(item.Author)),
			Author:  &feeds.Author{Name: item.Author, Email: fmt.Sprintf("%s@%s", item.Author, util.Name)},
			Created: item.CreatedAt,
		})
	}

	return feed.ToRss()
}
