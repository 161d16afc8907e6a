package models

// Attendee is one entry of a webinar's attendee list.
type Attendee struct {
	RegistrantKey Key    `json:"registrantKey"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	JoinTime      string `json:"joinTime,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Registrant is a registrant detail record. GoTo returns survey answers as "questions";
// some accounts only populate "responses".
type Registrant struct {
	RegistrantKey Key        `json:"registrantKey"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	Status        string     `json:"status,omitempty"`
	Questions     []Question `json:"questions,omitempty"`
	Responses     []Question `json:"responses,omitempty"`
}

// Answers returns the registrant's survey answers in upstream order.
func (r Registrant) Answers() []Question {
	if len(r.Questions) > 0 {
		return r.Questions
	}
	return r.Responses
}
