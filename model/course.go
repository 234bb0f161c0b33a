package model

import "time"

// Course is the top-level document stored in Redis. The code is derived from
// the identifying fields at creation time and is the document key; it never
// changes afterwards.
type Course struct {
	Code     string    `json:"code" example:"LEEECS1011A3.00"`
	Name     string    `json:"name" example:"Introduction to Computer Science"`
	Faculty  string    `json:"faculty" example:"LE"`
	Subject  string    `json:"subject" example:"EECS"`
	Number   string    `json:"number" example:"1011A"`
	Credits  string    `json:"credits" example:"3.00"`
	Sections []Section `json:"sections"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Section groups links under a course. Names are case-sensitive and unique
// within their course.
type Section struct {
	Name  string `json:"name" example:"Lecture Notes"`
	Links []Link `json:"links"`
}

// Link is a single shared resource. URLs are unique within their section.
type Link struct {
	ID     string   `json:"id"`
	Type   string   `json:"type" example:"zoom"`
	URL    string   `json:"url" example:"https://yorku.zoom.us/j/123456789"`
	Terms  []string `json:"terms,omitempty"`
	Clicks int64    `json:"clicks"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FindSection returns a pointer into the course's section slice, or nil.
func (c *Course) FindSection(name string) *Section {
	for i := range c.Sections {
		if c.Sections[i].Name == name {
			return &c.Sections[i]
		}
	}
	return nil
}

// FindLink returns a pointer into the section's link slice, or nil.
func (s *Section) FindLink(url string) *Link {
	for i := range s.Links {
		if s.Links[i].URL == url {
			return &s.Links[i]
		}
	}
	return nil
}
