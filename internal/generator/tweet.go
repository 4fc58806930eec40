package generator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Aman-CERP/corpusidx/internal/collection"
)

// Tweet field names.
const (
	FieldIDLong            = "id_long"
	FieldEpoch             = "epoch"
	FieldScreenName        = "screen_name"
	FieldLang              = "lang"
	FieldInReplyToStatusID = "in_reply_to_status_id"
	FieldInReplyToUserID   = "in_reply_to_user_id"
	FieldRetweetedStatusID = "retweeted_status_id"
	FieldRetweetedUserID   = "retweeted_user_id"
	FieldRetweetCount      = "retweet_count"
	FieldFollowersCount    = "followers_count"
	FieldFriendsCount      = "friends_count"
	FieldStatusesCount     = "statuses_count"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

type tweetGenerator struct {
	opts Options
}

// NewTweet builds the tweet generator. Records without tweet attributes are
// invalid.
func NewTweet(opts Options) (Generator, error) {
	return &tweetGenerator{opts: opts}, nil
}

// TweetSchema is the field layout of NewTweet.
func TweetSchema(opts Options) Schema {
	s := Schema{Fields: []FieldSpec{
		{Name: FieldID, Kind: Keyword, Store: true},
		{Name: FieldIDLong, Kind: Numeric, Store: true},
		{Name: FieldEpoch, Kind: Numeric, Store: true},
		{Name: FieldScreenName, Kind: Keyword, Store: true},
		{Name: FieldLang, Kind: Keyword, Store: true},
		{Name: FieldInReplyToStatusID, Kind: Numeric, Store: true},
		{Name: FieldInReplyToUserID, Kind: Numeric, Store: true},
		{Name: FieldRetweetedStatusID, Kind: Numeric, Store: true},
		{Name: FieldRetweetedUserID, Kind: Numeric, Store: true},
		{Name: FieldRetweetCount, Kind: Numeric, Store: true},
		{Name: FieldFollowersCount, Kind: Numeric, Store: true},
		{Name: FieldFriendsCount, Kind: Numeric, Store: true},
		{Name: FieldStatusesCount, Kind: Numeric, Store: true},
		{Name: FieldContents, Kind: Text, Store: opts.StoreContents},
	}}
	if opts.StoreRaw {
		s.Fields = append(s.Fields, FieldSpec{Name: FieldRaw, Kind: StoredOnly, Store: true})
	}
	return s
}

func (g *tweetGenerator) Generate(rec *collection.Record) Result {
	tw := rec.Tweet
	if tw == nil {
		return InvalidResult("record carries no tweet attributes")
	}
	id, err := strconv.ParseInt(rec.ID, 10, 64)
	if err != nil {
		return InvalidResult("tweet id is not numeric")
	}

	if strings.TrimSpace(rec.Contents) == "" {
		return EmptyResult("blank tweet text")
	}
	if _, deleted := g.opts.DeletedIDs[rec.ID]; deleted {
		return SkipResult("tweet deleted")
	}
	if g.opts.MaxID > 0 && id > g.opts.MaxID {
		return SkipResult("tweet id beyond max id")
	}
	if !g.opts.KeepRetweets && tw.IsRetweet() {
		return SkipResult("retweet")
	}

	text := rec.Contents
	if !g.opts.KeepURLs {
		text = strings.TrimSpace(urlPattern.ReplaceAllString(text, ""))
		if text == "" {
			return EmptyResult("tweet text is only urls")
		}
	}

	doc := NewDocument(rec.ID).
		Add(FieldID, Keyword, rec.ID).
		Add(FieldIDLong, Numeric, id).
		Add(FieldEpoch, Numeric, tw.CreatedAt.Unix()).
		Add(FieldScreenName, Keyword, tw.ScreenName).
		Add(FieldFollowersCount, Numeric, int64(tw.FollowersCount)).
		Add(FieldFriendsCount, Numeric, int64(tw.FriendsCount)).
		Add(FieldStatusesCount, Numeric, int64(tw.StatusesCount)).
		Add(FieldContents, Text, text)

	if tw.Lang != "" {
		doc.Add(FieldLang, Keyword, tw.Lang)
	}
	addOptional(doc, FieldInReplyToStatusID, tw.InReplyToStatusID)
	addOptional(doc, FieldInReplyToUserID, tw.InReplyToUserID)
	addOptional(doc, FieldRetweetedStatusID, tw.RetweetedStatusID)
	addOptional(doc, FieldRetweetedUserID, tw.RetweetedUserID)
	addOptional(doc, FieldRetweetCount, tw.RetweetCount)

	if g.opts.StoreRaw {
		doc.Add(FieldRaw, StoredOnly, rec.Raw)
	}
	return Produced(doc)
}

func addOptional(doc *Document, name string, v *int64) {
	if v != nil {
		doc.Add(name, Numeric, *v)
	}
}
