package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/deemkeen/stegogram/domain"
	"github.com/redis/go-redis/v9"
)

const (
	fieldUsername  = "username"
	fieldFollowing = "following"
	fieldFollowers = "followers"
	fieldPosts     = "posts"
	fieldLikes     = "likes"

	feedKey     = "feed"
	FeedMaxSize = 200
)

// addPostScript appends an image to the user's posts, bumps the post
// counter and pushes the entry onto the capped public feed atomically.
const addPostScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("RPUSH", KEYS[2], ARGV[1])
redis.call("HINCRBY", KEYS[1], "posts", 1)
redis.call("LPUSH", KEYS[3], ARGV[2])
redis.call("LTRIM", KEYS[3], 0, tonumber(ARGV[3]) - 1)
return 1
`

var addPostLua = redis.NewScript(addPostScript)

// RedisStore keeps profile records under the hierarchical keys
// users/<id> (hash) and users/<id>/postsImages (list).
type RedisStore struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func userKey(userID string) string {
	return "users/" + userID
}

func imagesKey(userID string) string {
	return userKey(userID) + "/postsImages"
}

func (r *RedisStore) Get(ctx context.Context, userID string) (domain.ProfileRecordRaw, error) {
	var fields *redis.MapStringStringCmd
	var images *redis.StringSliceCmd
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		fields = p.HGetAll(ctx, userKey(userID))
		images = p.LRange(ctx, imagesKey(userID), 0, -1)
		return nil
	})
	if err != nil {
		return domain.ProfileRecordRaw{}, err
	}

	values := fields.Val()
	if len(values) == 0 {
		return domain.ProfileRecordRaw{}, ErrNotFound
	}

	raw := domain.ProfileRecordRaw{PostsImages: images.Val()}
	if v, ok := values[fieldUsername]; ok {
		raw.Username = &v
	}
	for field, dst := range map[string]**int{
		fieldFollowing: &raw.Following,
		fieldFollowers: &raw.Followers,
		fieldPosts:     &raw.Posts,
		fieldLikes:     &raw.Likes,
	} {
		v, ok := values[field]
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.ProfileRecordRaw{}, fmt.Errorf("%s %q: %w", field, v, ErrMalformedRecord)
		}
		*dst = &n
	}
	return raw, nil
}

// put overwrites a whole record.
func (r *RedisStore) put(ctx context.Context, userID string, rec domain.ProfileRecord) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, userKey(userID), imagesKey(userID))
		p.HSet(ctx, userKey(userID),
			fieldUsername, rec.Username,
			fieldFollowing, rec.Following,
			fieldFollowers, rec.Followers,
			fieldPosts, rec.Posts,
			fieldLikes, rec.Likes)
		if len(rec.PostsImages) > 0 {
			images := make([]any, len(rec.PostsImages))
			for i, img := range rec.PostsImages {
				images[i] = img
			}
			p.RPush(ctx, imagesKey(userID), images...)
		}
		return nil
	})
	return err
}

// Provision creates the record of a new account. An existing record is left
// untouched.
func (r *RedisStore) Provision(ctx context.Context, acc domain.Account) error {
	created, err := r.rdb.HSetNX(ctx, userKey(acc.Id.String()), fieldUsername, acc.Username).Result()
	if err != nil {
		return err
	}
	if created {
		return r.rdb.HSet(ctx, userKey(acc.Id.String()),
			fieldFollowing, 0, fieldFollowers, 0, fieldPosts, 0, fieldLikes, 0).Err()
	}
	return nil
}

// Delete removes a user's record and images. Posts already on the public
// feed stay there.
func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	return r.rdb.Del(ctx, userKey(userID), imagesKey(userID)).Err()
}

// AddPost records a new image post for the user.
func (r *RedisStore) AddPost(ctx context.Context, userID, author, imageURI string) error {
	entry, err := json.Marshal(domain.FeedItem{
		UserID:    userID,
		Author:    author,
		ImageURI:  imageURI,
		CreatedAt: r.now().UTC(),
	})
	if err != nil {
		return err
	}

	keys := []string{userKey(userID), imagesKey(userID), feedKey}
	res, err := addPostLua.Run(ctx, r.rdb, keys, imageURI, string(entry), FeedMaxSize).Int()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

// Feed returns up to limit of the newest public posts. Entries that cannot be
// decoded are skipped.
func (r *RedisStore) Feed(ctx context.Context, limit int) ([]domain.FeedItem, error) {
	if limit <= 0 {
		return []domain.FeedItem{}, nil
	}
	entries, err := r.rdb.LRange(ctx, feedKey, 0, int64(limit-1)).Result()
	if errors.Is(err, redis.Nil) {
		return []domain.FeedItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]domain.FeedItem, 0, len(entries))
	for _, e := range entries {
		var item domain.FeedItem
		if err := json.Unmarshal([]byte(e), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
