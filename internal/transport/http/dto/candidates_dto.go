package dto

type CandidateResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Headline    string   `json:"headline,omitempty"`
	About       string   `json:"about,omitempty"`
	Gender      []string `json:"gender"`
	SocialStyle string   `json:"social_style"`
	Interests   []string `json:"interests"`
	PhotoKey    string   `json:"photo_key,omitempty"`
	Score       int      `json:"score"`
}

type CandidatesResponse struct {
	Items []CandidateResponse `json:"items"`
}
