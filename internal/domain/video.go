package domain

import "time"

// RawItem is one entry of the popular list as reported by the video source.
// It is never mutated after construction.
type RawItem struct {
	BVID     string `json:"bvid"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	View     int64  `json:"view"`
	Danmaku  int64  `json:"danmaku"`
	Reply    int64  `json:"reply"`
	Favorite int64  `json:"favorite"`
	Coin     int64  `json:"coin"`
	Share    int64  `json:"share"`
	Like     int64  `json:"like"`
	PubDate  int64  `json:"pubdate"` // unix seconds
	Pic      string `json:"pic"`
}

// PublishedAt converts the unix publish timestamp.
func (r RawItem) PublishedAt() time.Time {
	return time.Unix(r.PubDate, 0)
}

// DerivedItem is a RawItem plus engagement ratios.
type DerivedItem struct {
	RawItem
	LikeRate        float64 `json:"like_rate"`
	CoinRate        float64 `json:"coin_rate"`
	FavRate         float64 `json:"fav_rate"`
	InteractionRate float64 `json:"interaction_rate"`
}

// Metric field names accepted by DerivedItem.Metric.
const (
	FieldView            = "view"
	FieldLike            = "like"
	FieldCoin            = "coin"
	FieldFavorite        = "favorite"
	FieldDanmaku         = "danmaku"
	FieldReply           = "reply"
	FieldShare           = "share"
	FieldLikeRate        = "like_rate"
	FieldCoinRate        = "coin_rate"
	FieldFavRate         = "fav_rate"
	FieldInteractionRate = "interaction_rate"
)

// Attribute field names accepted by DerivedItem.Attribute.
const (
	FieldBVID   = "bvid"
	FieldTitle  = "title"
	FieldAuthor = "author"
	FieldPic    = "pic"
)

// Metric returns the numeric value of field. ok is false for unknown names.
func (d DerivedItem) Metric(field string) (value float64, ok bool) {
	switch field {
	case FieldView:
		return float64(d.View), true
	case FieldLike:
		return float64(d.Like), true
	case FieldCoin:
		return float64(d.Coin), true
	case FieldFavorite:
		return float64(d.Favorite), true
	case FieldDanmaku:
		return float64(d.Danmaku), true
	case FieldReply, "comment":
		return float64(d.Reply), true
	case FieldShare:
		return float64(d.Share), true
	case FieldLikeRate:
		return d.LikeRate, true
	case FieldCoinRate:
		return d.CoinRate, true
	case FieldFavRate:
		return d.FavRate, true
	case FieldInteractionRate:
		return d.InteractionRate, true
	default:
		return 0, false
	}
}

// Attribute returns the text value of field. ok is false for unknown names.
func (d DerivedItem) Attribute(field string) (value string, ok bool) {
	switch field {
	case FieldBVID, "id":
		return d.BVID, true
	case FieldTitle:
		return d.Title, true
	case FieldAuthor:
		return d.Author, true
	case FieldPic:
		return d.Pic, true
	default:
		return "", false
	}
}
