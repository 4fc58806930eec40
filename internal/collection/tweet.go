package collection

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// twitterTimeLayout is the created_at format of the streaming API.
const twitterTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Tweets reads files of one tweet JSON object per line, as written by the
// streaming API. Delete notices and lines that cannot be parsed are counted
// as skipped.
func Tweets() Collection {
	return &fileCollection{
		name:   "tweet",
		filter: Filter{},
		open:   openTweetSegment,
	}
}

type tweetUser struct {
	ID             int64  `json:"id"`
	ScreenName     string `json:"screen_name"`
	FollowersCount int    `json:"followers_count"`
	FriendsCount   int    `json:"friends_count"`
	StatusesCount  int    `json:"statuses_count"`
}

type tweetJSON struct {
	Delete            json.RawMessage `json:"delete"`
	ID                json.Number     `json:"id"`
	IDStr             string          `json:"id_str"`
	Text              string          `json:"text"`
	FullText          string          `json:"full_text"`
	CreatedAt         string          `json:"created_at"`
	Lang              string          `json:"lang"`
	InReplyToStatusID *int64          `json:"in_reply_to_status_id"`
	InReplyToUserID   *int64          `json:"in_reply_to_user_id"`
	RetweetCount      *int64          `json:"retweet_count"`
	User              tweetUser       `json:"user"`
	RetweetedStatus   *struct {
		ID   int64     `json:"id"`
		User tweetUser `json:"user"`
	} `json:"retweeted_status"`
}

type tweetSegment struct {
	segmentState
	rc    io.ReadCloser
	lines *lineReader
	done  bool
}

func openTweetSegment(path string) (Segment, error) {
	rc, err := openInput(path)
	if err != nil {
		return nil, err
	}
	return &tweetSegment{rc: rc, lines: newLineReader(rc)}, nil
}

func (s *tweetSegment) Next(ctx context.Context) (*Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.done {
			return nil, io.EOF
		}

		line, err := s.lines.next()
		if err != nil {
			s.done = true
			if err != io.EOF {
				s.failed = true
			}
			return nil, io.EOF
		}
		if len(line) == 0 {
			continue
		}

		rec, ok := parseTweet(line)
		if !ok {
			s.skipped++
			continue
		}
		return rec, nil
	}
}

func (s *tweetSegment) Close() error {
	return s.rc.Close()
}

// parseTweet returns false for delete notices and unparsable lines.
func parseTweet(line []byte) (*Record, bool) {
	var tw tweetJSON
	if err := json.Unmarshal(line, &tw); err != nil {
		return nil, false
	}
	if len(tw.Delete) > 0 {
		return nil, false
	}

	createdAt, err := time.Parse(twitterTimeLayout, tw.CreatedAt)
	if err != nil {
		return nil, false
	}

	id := tw.IDStr
	if id == "" {
		id = tw.ID.String()
	}
	text := tw.Text
	if text == "" {
		text = tw.FullText
	}

	info := &TweetInfo{
		ScreenName:        tw.User.ScreenName,
		Lang:              tw.Lang,
		CreatedAt:         createdAt,
		InReplyToStatusID: tw.InReplyToStatusID,
		InReplyToUserID:   tw.InReplyToUserID,
		RetweetCount:      tw.RetweetCount,
		FollowersCount:    tw.User.FollowersCount,
		FriendsCount:      tw.User.FriendsCount,
		StatusesCount:     tw.User.StatusesCount,
	}
	if rt := tw.RetweetedStatus; rt != nil {
		statusID, userID := rt.ID, rt.User.ID
		info.RetweetedStatusID = &statusID
		info.RetweetedUserID = &userID
	}

	return &Record{
		ID:        id,
		Contents:  text,
		Raw:       string(line),
		Indexable: true,
		Tweet:     info,
	}, true
}
