package api

type ProfileListResponse struct {
	TotalCount int `json:"totalCount"`
	List       []struct {
		Name  string  `json:"name"`
		Image *string `json:"image"`
	} `json:"list"`
}
