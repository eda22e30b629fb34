package posts

import (
	"time"

	"github.com/rivo/uniseg"

	"Curbside/internal/core/media"
)

// listingDescriptionGraphemes is where listing descriptions are cut
const listingDescriptionGraphemes = 300

// PostView is the public representation of a post. It omits the submitter
// email and every state flag.
type PostView struct {
	CreatedAt     time.Time      `json:"createdAt"`
	StartTime     *time.Time     `json:"startTime,omitempty"`
	EndTime       *time.Time     `json:"endTime,omitempty"`
	ExactLocation *string        `json:"exactLocation,omitempty"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Price         string         `json:"price"`
	Location      string         `json:"location"`
	Media         []*media.Asset `json:"media"`
	ID            int64          `json:"id"`
	IsGarageSale  bool           `json:"isGarageSale"`
}

// NewPostView builds the public view of p. Only public assets are included.
// trim shortens the description for listings.
func NewPostView(p *Post, assets []*media.Asset, trim bool) *PostView {
	description := p.Description
	if trim {
		description = TrimDescription(description, listingDescriptionGraphemes)
	}

	visible := make([]*media.Asset, 0, len(assets))
	for _, a := range assets {
		if a.Public {
			visible = append(visible, a)
		}
	}

	return &PostView{
		ID:            p.ID,
		Title:         p.Title,
		Description:   description,
		Price:         p.Price,
		Location:      p.Location,
		ExactLocation: p.ExactLocation,
		IsGarageSale:  p.IsGarageSale,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		CreatedAt:     p.CreatedAt,
		Media:         visible,
	}
}

// TrimDescription cuts s after max grapheme clusters and appends an
// ellipsis. Strings that fit are returned unchanged.
func TrimDescription(s string, max int) string {
	if uniseg.GraphemeClusterCount(s) <= max {
		return s
	}
	g := uniseg.NewGraphemes(s)
	end := 0
	for n := 0; n < max && g.Next(); n++ {
		_, end = g.Positions()
	}
	return s[:end] + "…"
}
