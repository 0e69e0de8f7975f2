package models

import "strings"

const AdminTier = "Admin"

type User struct {
	Username     string  `json:"username"`
	UserUID      int64   `json:"userUID"`
	UserEmail    string  `json:"userEmail"`
	UserTier     string  `json:"userTier"`
	UserLanguage string  `json:"userLanguage"`
	SearchCount  int     `json:"searchCount"`
	ViewCount    int     `json:"viewCount"`
	AllUIDs      []int64 `json:"allUIDs"`
	Password     string  `json:"userPassword,omitempty"` // bcrypt hash
}

// Public returns a copy without the password hash.
func (u User) Public() User {
	u.Password = ""
	return u
}

func (u *User) EmailMatches(email string) bool {
	return strings.EqualFold(strings.TrimSpace(u.UserEmail), strings.TrimSpace(email))
}

// CallerIdentity is the authenticated requester passed explicitly into every
// mutating operation. UserUID 0 means anonymous.
type CallerIdentity struct {
	UserUID  int64
	Username string
	IsAdmin  bool
}

func Anonymous() CallerIdentity {
	return CallerIdentity{}
}

func (c CallerIdentity) Authenticated() bool {
	return c.UserUID != 0
}
