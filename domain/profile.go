package domain

import "time"

// ProfileRecord is the user record rendered by the profile screen.
type ProfileRecord struct {
	Username    string   `json:"username"`
	Following   int      `json:"following"`
	Followers   int      `json:"followers"`
	Posts       int      `json:"posts"`
	Likes       int      `json:"likes"`
	PostsImages []string `json:"postsImages"`
}

// EmptyProfile returns the record shown before anything was fetched.
func EmptyProfile() ProfileRecord {
	return ProfileRecord{PostsImages: []string{}}
}

// ProfileRecordRaw is a record as read from the profile store. Any field may
// be absent.
type ProfileRecordRaw struct {
	Username    *string
	Following   *int
	Followers   *int
	Posts       *int
	Likes       *int
	PostsImages []string
}

// Normalize substitutes defaults for absent fields and clamps counts to zero.
func (r ProfileRecordRaw) Normalize() ProfileRecord {
	rec := EmptyProfile()
	if r.Username != nil {
		rec.Username = *r.Username
	}
	rec.Following = count(r.Following)
	rec.Followers = count(r.Followers)
	rec.Posts = count(r.Posts)
	rec.Likes = count(r.Likes)
	if len(r.PostsImages) > 0 {
		rec.PostsImages = append(rec.PostsImages, r.PostsImages...)
	}
	return rec
}

func count(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

// FeedItem is one entry of the public feed.
type FeedItem struct {
	UserID    string    `json:"userId"`
	Author    string    `json:"author"`
	ImageURI  string    `json:"imageUri"`
	CreatedAt time.Time `json:"createdAt"`
}
