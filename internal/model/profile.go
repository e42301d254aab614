package model

// Profile is a display-only directory entry. Image is empty when the
// directory has no picture for the profile.
type Profile struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type ProfilePage struct {
	TotalCount int
	Profiles   []Profile
}
