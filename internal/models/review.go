package models

import (
	"time"
)

type Review struct {
	User       string    `json:"user"`
	Pfp        *string   `json:"pfp"`
	MovieTitle *string   `json:"movieTitle"`
	MovieID    *string   `json:"movieId"`
	Stars      int       `json:"stars"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}
