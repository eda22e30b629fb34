package posts

import (
	"net/mail"
	"strings"

	"github.com/rivo/uniseg"

	"Curbside/internal/core/users"
)

// Length limits, counted in grapheme clusters
const (
	maxTitleGraphemes         = 255
	maxPriceGraphemes         = 64
	maxLocationGraphemes      = 255
	maxDescriptionGraphemes   = 10000
	maxEmailLength            = 254
	maxExactLocationGraphemes = 255
)

func (c Content) normalize() Content {
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.Price = strings.TrimSpace(c.Price)
	c.Location = strings.TrimSpace(c.Location)
	if c.ExactLocation != nil {
		exact := strings.TrimSpace(*c.ExactLocation)
		if exact == "" {
			c.ExactLocation = nil
		} else {
			c.ExactLocation = &exact
		}
	}
	return c
}

func normalizeEmail(email string) string {
	return users.NormalizeEmail(email)
}

// validateContent expects normalized content
func validateContent(c Content) *ValidationError {
	verr := &ValidationError{}

	required(verr, "title", c.Title, maxTitleGraphemes)
	required(verr, "description", c.Description, maxDescriptionGraphemes)
	required(verr, "price", c.Price, maxPriceGraphemes)

	if uniseg.GraphemeClusterCount(c.Location) > maxLocationGraphemes {
		verr.add("location", "is too long")
	}
	if c.ExactLocation != nil && uniseg.GraphemeClusterCount(*c.ExactLocation) > maxExactLocationGraphemes {
		verr.add("exactLocation", "is too long")
	}

	if c.IsGarageSale {
		if c.StartTime == nil {
			verr.add("startTime", "is required for garage sales")
		}
		if c.EndTime == nil {
			verr.add("endTime", "is required for garage sales")
		}
		if c.StartTime != nil && c.EndTime != nil && !c.EndTime.After(*c.StartTime) {
			verr.add("endTime", "must be after startTime")
		}
	}

	return verr
}

func required(verr *ValidationError, field, value string, max int) {
	if value == "" {
		verr.add(field, "is required")
		return
	}
	if uniseg.GraphemeClusterCount(value) > max {
		verr.add(field, "is too long")
	}
}

// validateEmail expects a normalized address and accepts only a bare
// addr-spec such as a@x.com (no display name, no angle brackets)
func validateEmail(email string) *ValidationError {
	verr := &ValidationError{}
	if email == "" {
		verr.add("email", "is required")
		return verr
	}
	if len(email) > maxEmailLength {
		verr.add("email", "is too long")
		return verr
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		verr.add("email", "is not a valid email address")
	}
	return verr
}
